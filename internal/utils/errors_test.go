package contextutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	withDetails := &AppError{Code: ErrorCodeInvalidInput, Message: "invalid schedule", Details: "email is empty"}
	assert.Equal(t, "INVALID_INPUT: invalid schedule - email is empty", withDetails.Error())

	bare := &AppError{Code: ErrorCodeRecordNotFound, Message: "feedback 7"}
	assert.Equal(t, "RECORD_NOT_FOUND: feedback 7", bare.Error())
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := WrapErrorf(ErrRecordNotFound, "feedback %d", 7)

	assert.True(t, errors.Is(err, ErrRecordNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.True(t, errors.Is(fmt.Errorf("detail handler: %w", err), ErrRecordNotFound))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))

	t.Run("keeps code of app errors", func(t *testing.T) {
		err := WrapError(ErrCSRFInvalid, "verify token")

		var appErr *AppError
		require.True(t, AsError(err, &appErr))
		assert.Equal(t, ErrorCodeCSRFInvalid, appErr.Code)
		assert.Equal(t, SeverityWarn, appErr.Severity)
		assert.Equal(t, "verify token", appErr.Message)
		assert.Same(t, ErrCSRFInvalid, appErr.Cause)
	})

	t.Run("plain errors become internal", func(t *testing.T) {
		cause := sql.ErrConnDone
		err := WrapError(cause, "insert feedback")

		assert.Equal(t, ErrorCodeInternalError, GetErrorCode(err))
		assert.True(t, errors.Is(err, sql.ErrConnDone))
		assert.Contains(t, err.Error(), "insert feedback")
	})
}

func TestWrapErrorf(t *testing.T) {
	assert.Nil(t, WrapErrorf(nil, "schedule %d", 1))

	t.Run("formats message", func(t *testing.T) {
		err := WrapErrorf(ErrInvalidFormat, "invalid schedule email %q", "nope")
		assert.True(t, IsError(err, ErrInvalidFormat))
		assert.Contains(t, err.Error(), `invalid schedule email "nope"`)
	})

	t.Run("percent w keeps every operand reachable", func(t *testing.T) {
		err := WrapErrorf(ErrDatabaseQuery, "list schedules: %w", sql.ErrNoRows)
		assert.True(t, IsError(err, ErrDatabaseQuery))
		assert.True(t, errors.Is(err, sql.ErrNoRows))
	})
}

func TestErrorWithContextf(t *testing.T) {
	err := ErrorWithContextf("service %s not found", "feedback")
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(err))
	assert.Equal(t, "INTERNAL_SERVER_ERROR: service feedback not found", err.Error())
}

func TestIsError_FollowsChain(t *testing.T) {
	err := fmt.Errorf("runner: %w", WrapError(ErrEmailDelivery, "send schedule 3"))

	assert.True(t, IsError(err, ErrEmailDelivery))
	assert.False(t, IsError(err, ErrReportGeneration))
	assert.False(t, IsError(errors.New("plain"), ErrEmailDelivery))
	assert.Equal(t, ErrorCodeEmailDelivery, GetErrorCode(err))
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(errors.New("plain")))
}

func TestAsError(t *testing.T) {
	var appErr *AppError
	assert.False(t, AsError(errors.New("plain"), &appErr))
	assert.Nil(t, appErr)

	assert.True(t, AsError(fmt.Errorf("wrapped: %w", ErrForbidden), &appErr))
	assert.Equal(t, ErrorCodeForbidden, appErr.Code)
}

func TestNewAppErrorWithCause(t *testing.T) {
	cause := errors.New("smtp: 421")
	err := NewAppErrorWithCause(ErrorCodeEmailDelivery, SeverityError, "notify admin", "feedback 7", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.Equal(t, "EMAIL_DELIVERY_FAILED: notify admin - feedback 7", err.Error())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection lost", WrapError(ErrDatabaseConnection, "ping"), true},
		{"redis down", ErrServiceUnavailable, true},
		{"timeout", NewAppError(ErrorCodeTimeout, SeverityWarn, "smtp dial", ""), true},
		{"fatal timeout", NewAppError(ErrorCodeTimeout, SeverityFatal, "smtp dial", ""), false},
		{"bad input", ErrInvalidInput, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestAppError_ToJSONWithLocale(t *testing.T) {
	t.Run("localized by code", func(t *testing.T) {
		body := WrapError(ErrCSRFInvalid, "token mismatch").(*AppError).ToJSONWithLocale("ja-JP")

		assert.Equal(t, false, body["success"])
		assert.Equal(t, "CSRF_TOKEN_INVALID", body["code"])
		assert.Equal(t, "CSRFトークンが無効です。", body["message"])
		assert.Equal(t, body["message"], body["error"])
		assert.NotContains(t, body["message"], "token mismatch")
	})

	t.Run("validation message kept verbatim", func(t *testing.T) {
		err := NewAppError(ErrorCodeValidationFailed, SeverityWarn, "フィードバックの種類は必須です\n有効な電話番号を入力してください", "")

		body := err.ToJSONWithLocale("ja")
		assert.Equal(t, "フィードバックの種類は必須です\n有効な電話番号を入力してください", body["message"])
	})

	t.Run("rate limit", func(t *testing.T) {
		body := NewAppError(ErrorCodeRateLimit, SeverityWarn, "intake", "").ToJSONWithLocale("")
		assert.Equal(t, "送信回数の上限に達しました。しばらくしてから再度お試しください。", body["message"])
	})
}

func TestParseLocale(t *testing.T) {
	tests := []struct {
		input    string
		expected Locale
	}{
		{"ja", LocaleJapanese},
		{"ja-JP", LocaleJapanese},
		{"ja,en-US;q=0.9", LocaleJapanese},
		{"en", LocaleEnglish},
		{"EN-us", LocaleEnglish},
		{"", LocaleJapanese},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLocale(tt.input))
		})
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, 0, GetAdminIDFromContext(ctx))
	assert.Equal(t, "", GetRequestIDFromContext(ctx))

	ctx = WithAdminID(ctx, 7)
	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, 7, GetAdminIDFromContext(ctx))
	assert.Equal(t, "req-1", GetRequestIDFromContext(ctx))
}
