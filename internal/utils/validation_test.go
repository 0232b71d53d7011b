package contextutils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("user@example.com"))
	assert.True(t, IsValidEmail("user.name@example.com"))
	assert.True(t, IsValidEmail("user+tag@example.co.jp"))
	assert.True(t, IsValidEmail("user@subdomain.example.com"))

	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("invalid-email"))
	assert.False(t, IsValidEmail("@example.com"))
	assert.False(t, IsValidEmail("user@"))
	assert.False(t, IsValidEmail("user name@example.com"))
	assert.False(t, IsValidEmail("user@example..com"))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone(""))
	assert.True(t, IsValidPhone("03-1234-5678"))
	assert.True(t, IsValidPhone("+81(3)1234-5678"))

	assert.False(t, IsValidPhone("03 1234 5678"))
	assert.False(t, IsValidPhone("tel:0312345678"))
	assert.False(t, IsValidPhone("０３１２３４"))
}

func TestCharLength(t *testing.T) {
	assert.Equal(t, 0, CharLength(""))
	assert.Equal(t, 5, CharLength("hello"))
	assert.Equal(t, 10, CharLength(strings.Repeat("あ", 10)))
	assert.Equal(t, 30, len(strings.Repeat("あ", 10)))
}

func TestValidateStruct_NamesFieldsByYAMLPath(t *testing.T) {
	type smtp struct {
		Host string `yaml:"host" validate:"required"`
	}
	type settings struct {
		RunHour int    `yaml:"run_hour" validate:"min=0,max=23"`
		Contact string `yaml:"contact" validate:"omitempty,email"`
		SMTP    smtp   `yaml:"smtp"`
	}

	require.NoError(t, ValidateStruct(settings{RunHour: 9, SMTP: smtp{Host: "mail"}}))

	err := ValidateStruct(settings{RunHour: 24, Contact: "nope"})
	require.Error(t, err)
	assert.Equal(t, ErrorCodeValidationFailed, GetErrorCode(err))
	assert.Contains(t, err.Error(), "run_hour failed max=23")
	assert.Contains(t, err.Error(), "contact failed email")
	assert.Contains(t, err.Error(), "smtp.host failed required")
}
