// Package contextutils provides error handling utilities and standardized error types
// shared by the feedback back-office services, handlers and jobs.
package contextutils

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a standardized error code for API responses
type ErrorCode string

const (
	// Database error codes

	// ErrorCodeDatabaseConnection indicates a database connection error
	ErrorCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_ERROR"
	// ErrorCodeDatabaseQuery indicates a database query error
	ErrorCodeDatabaseQuery ErrorCode = "DATABASE_QUERY_ERROR"
	// ErrorCodeDatabaseTransaction indicates a database transaction error
	ErrorCodeDatabaseTransaction ErrorCode = "DATABASE_TRANSACTION_ERROR"
	// ErrorCodeRecordNotFound indicates that a requested record was not found
	ErrorCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	// ErrorCodeRecordExists indicates that a record already exists (duplicate key)
	ErrorCodeRecordExists ErrorCode = "RECORD_ALREADY_EXISTS"

	// Validation error codes

	// ErrorCodeInvalidInput indicates that the provided input is invalid
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeMissingRequired indicates that a required field is missing
	ErrorCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"
	// ErrorCodeInvalidFormat indicates that the input format is invalid
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	// ErrorCodeValidationFailed indicates that validation has failed
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Authentication error codes

	// ErrorCodeUnauthorized indicates that no valid admin session exists
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeForbidden indicates that the admin lacks the required permission
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrorCodeInvalidCredentials indicates that the provided credentials are invalid
	ErrorCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	// ErrorCodeAccountDisabled indicates that the admin account is inactive
	ErrorCodeAccountDisabled ErrorCode = "ACCOUNT_DISABLED"
	// ErrorCodeSessionExpired indicates that the admin session has idled out
	ErrorCodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	// ErrorCodeCSRFInvalid indicates a missing or mismatched CSRF token
	ErrorCodeCSRFInvalid ErrorCode = "CSRF_TOKEN_INVALID"

	// Service error codes

	// ErrorCodeServiceUnavailable indicates that the service is temporarily unavailable
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrorCodeTimeout indicates that a request has timed out
	ErrorCodeTimeout ErrorCode = "REQUEST_TIMEOUT"
	// ErrorCodeRateLimit indicates that the rate limit has been exceeded
	ErrorCodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrorCodeInternalError indicates an internal server error
	ErrorCodeInternalError ErrorCode = "INTERNAL_SERVER_ERROR"
	// ErrorCodeConflict indicates that an operation conflicts with the current state
	ErrorCodeConflict ErrorCode = "CONFLICT"

	// Reporting error codes

	// ErrorCodeReportGeneration indicates that a report could not be computed or stored
	ErrorCodeReportGeneration ErrorCode = "REPORT_GENERATION_FAILED"
	// ErrorCodeExportFailed indicates that an export could not be rendered
	ErrorCodeExportFailed ErrorCode = "EXPORT_FAILED"
	// ErrorCodeEmailDelivery indicates that an outbound email could not be sent
	ErrorCodeEmailDelivery ErrorCode = "EMAIL_DELIVERY_FAILED"
)

// SeverityLevel represents the severity of an error for logging and monitoring
type SeverityLevel string

// Severity levels, ordered from least to most severe
const (
	SeverityDebug SeverityLevel = "debug"
	SeverityInfo  SeverityLevel = "info"
	SeverityWarn  SeverityLevel = "warn"
	SeverityError SeverityLevel = "error"
	SeverityFatal SeverityLevel = "fatal"
)

// AppError carries a stable code and severity alongside the message.
// Message and Details are for logs; users see the localized text for Code.
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  string
	Cause    error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError with the same code, so errors.Is works against the sentinels
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

func sentinel(code ErrorCode, severity SeverityLevel, message string) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message}
}

// Sentinels for errors.Is and IsError. Wrap them, never mutate them.
var (
	ErrDatabaseConnection  = sentinel(ErrorCodeDatabaseConnection, SeverityError, "Database connection failed")
	ErrDatabaseQuery       = sentinel(ErrorCodeDatabaseQuery, SeverityError, "Database query failed")
	ErrDatabaseTransaction = sentinel(ErrorCodeDatabaseTransaction, SeverityError, "Database transaction failed")
	ErrRecordNotFound      = sentinel(ErrorCodeRecordNotFound, SeverityInfo, "Record not found")
	ErrRecordExists        = sentinel(ErrorCodeRecordExists, SeverityInfo, "Record already exists")

	ErrInvalidInput    = sentinel(ErrorCodeInvalidInput, SeverityWarn, "Invalid input")
	ErrMissingRequired = sentinel(ErrorCodeMissingRequired, SeverityWarn, "Missing required field")
	ErrInvalidFormat   = sentinel(ErrorCodeInvalidFormat, SeverityWarn, "Invalid format")

	ErrUnauthorized       = sentinel(ErrorCodeUnauthorized, SeverityWarn, "Unauthorized")
	ErrForbidden          = sentinel(ErrorCodeForbidden, SeverityWarn, "Forbidden")
	ErrInvalidCredentials = sentinel(ErrorCodeInvalidCredentials, SeverityWarn, "Invalid credentials")
	ErrAccountDisabled    = sentinel(ErrorCodeAccountDisabled, SeverityWarn, "Account disabled")
	ErrSessionExpired     = sentinel(ErrorCodeSessionExpired, SeverityInfo, "Session expired")
	ErrCSRFInvalid        = sentinel(ErrorCodeCSRFInvalid, SeverityWarn, "Invalid CSRF token")

	ErrServiceUnavailable = sentinel(ErrorCodeServiceUnavailable, SeverityError, "Service unavailable")
	ErrInternalError      = sentinel(ErrorCodeInternalError, SeverityError, "Internal server error")

	ErrReportGeneration = sentinel(ErrorCodeReportGeneration, SeverityError, "Report generation failed")
	ErrExportFailed     = sentinel(ErrorCodeExportFailed, SeverityError, "Export failed")
	ErrEmailDelivery    = sentinel(ErrorCodeEmailDelivery, SeverityError, "Email delivery failed")
)

// NewAppError creates a new AppError with the given code, severity, message and details
func NewAppError(code ErrorCode, severity SeverityLevel, message, details string) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message, Details: details}
}

// NewAppErrorWithCause creates a new AppError with an underlying cause
func NewAppErrorWithCause(code ErrorCode, severity SeverityLevel, message, details string, cause error) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message, Details: details, Cause: cause}
}

// wrap keeps the code and severity of the nearest AppError in err's chain;
// anything else becomes an internal error
func wrap(err error, message string, cause error) error {
	if appErr, ok := asAppError(err); ok {
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  message,
			Details:  err.Error(),
			Cause:    cause,
		}
	}
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  message,
		Details:  err.Error(),
		Cause:    cause,
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return wrap(err, context, err)
}

// WrapErrorf wraps an error with formatted context. A %w verb in format is
// honored, so the wrapped chain still answers errors.Is for every operand.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if strings.Contains(format, "%w") {
		wrapped := fmt.Errorf(format, args...)
		return wrap(err, wrapped.Error(), wrapped)
	}
	return wrap(err, fmt.Sprintf(format, args...), err)
}

// ErrorWithContextf creates a new internal error with formatted context
func ErrorWithContextf(format string, args ...interface{}) error {
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	}
}

func asAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsError reports whether the nearest AppError in err's chain has target's code
func IsError(err error, target *AppError) bool {
	if appErr, ok := asAppError(err); ok {
		return appErr.Code == target.Code
	}
	return false
}

// AsError finds the nearest AppError in err's chain
func AsError(err error, target **AppError) bool {
	appErr, ok := asAppError(err)
	if ok {
		*target = appErr
	}
	return ok
}

// GetErrorCode returns the code of the nearest AppError, or INTERNAL_SERVER_ERROR
func GetErrorCode(err error) ErrorCode {
	if appErr, ok := asAppError(err); ok {
		return appErr.Code
	}
	return ErrorCodeInternalError
}

// IsRetryable reports transient failures: timeouts, unavailable dependencies, lost connections
func IsRetryable(err error) bool {
	appErr, ok := asAppError(err)
	if !ok || appErr.Severity == SeverityFatal {
		return false
	}
	switch appErr.Code {
	case ErrorCodeTimeout, ErrorCodeServiceUnavailable, ErrorCodeDatabaseConnection:
		return true
	}
	return false
}

// ToJSONWithLocale builds the API error body. The cause is never included.
func (e *AppError) ToJSONWithLocale(locale string) map[string]interface{} {
	message := GetLocalizedMessage(e.Code, ParseLocale(locale))
	// Validation errors already carry the user-facing text
	if e.Code == ErrorCodeValidationFailed && e.Message != "" {
		message = e.Message
	}
	return map[string]interface{}{
		"success":   false,
		"code":      string(e.Code),
		"message":   message,
		"error":     message,
		"retryable": IsRetryable(e),
	}
}

// ContextKey represents a context key type for passing values through context
type ContextKey string

const (
	// AdminIDKey stores the authenticated admin id in a request context
	AdminIDKey ContextKey = "adminID"
	// RequestIDKey stores the per-request correlation id
	RequestIDKey ContextKey = "requestID"
)

// GetAdminIDFromContext extracts the admin ID from context, returning 0 if not found
func GetAdminIDFromContext(ctx context.Context) int {
	if adminID, ok := ctx.Value(AdminIDKey).(int); ok {
		return adminID
	}
	return 0
}

// WithAdminID returns a new context with the admin ID set
func WithAdminID(ctx context.Context, adminID int) context.Context {
	return context.WithValue(ctx, AdminIDKey, adminID)
}

// GetRequestIDFromContext extracts the request id, returning "" if not set
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID returns a new context carrying the request id
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
