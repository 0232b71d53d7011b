package contextutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.Regexp(t, "^[0-9a-f]+$", a)

	b, err := GenerateToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokensEqual(t *testing.T) {
	assert.True(t, TokensEqual("abc123", "abc123"))
	assert.False(t, TokensEqual("abc123", "abc124"))
	assert.False(t, TokensEqual("abc123", "abc12"))
	assert.False(t, TokensEqual("", ""))
	assert.False(t, TokensEqual("abc123", ""))
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{name: "empty", email: "", expected: "[EMPTY]"},
		{name: "no at sign", email: "abcd", expected: "****"},
		{name: "short local part", email: "ab@example.com", expected: "**@example.com"},
		{name: "regular", email: "taro@example.com", expected: "ta**@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskEmail(tt.email))
		})
	}
}
