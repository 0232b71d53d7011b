package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"corpsite/internal/observability"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryMiddleware turns a panicking handler into a logged 500. Admin
// pages get plain text, everything else the JSON error payload.
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				var panicErr error
				if e, ok := rec.(error); ok {
					panicErr = e
				} else {
					panicErr = fmt.Errorf("panic: %v", rec)
				}

				if logger != nil {
					logger.Error(c.Request.Context(), "Panic recovered", panicErr, map[string]interface{}{
						"method": c.Request.Method,
						"path":   c.Request.URL.Path,
						"stack":  string(debug.Stack()),
					})
				}

				appErr := contextutils.NewAppErrorWithCause(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
					panicErr,
				)
				if c.Writer.Written() {
					c.Abort()
					return
				}
				if IsAdminPage(c) {
					c.String(http.StatusInternalServerError, contextutils.GetLocalizedMessage(appErr.Code, contextutils.DefaultLocale))
					c.Abort()
					return
				}
				HandleAppError(c, appErr)
				c.Abort()
			}
		}()

		c.Next()
	}
}

// HandleAppError writes the JSON error payload for err. The message is the
// localized text for the error code; internal details never reach the client.
// Validation errors keep their own message since it is already user facing.
func HandleAppError(c *gin.Context, err error) {
	var appErr *contextutils.AppError
	if !contextutils.AsError(err, &appErr) {
		appErr = contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInternalError,
			contextutils.SeverityError,
			"Internal server error",
			"",
			err,
		)
	}
	c.JSON(HTTPStatus(appErr.Code), appErr.ToJSONWithLocale(string(contextutils.DefaultLocale)))
}

// AbortWithAppError is HandleAppError followed by Abort
func AbortWithAppError(c *gin.Context, err error) {
	HandleAppError(c, err)
	c.Abort()
}

// ServiceUnavailable sends a 503 Service Unavailable error with a standardized payload
func ServiceUnavailable(c *gin.Context) {
	HandleAppError(c, contextutils.ErrServiceUnavailable)
}

// HTTPStatus maps AppError codes to HTTP status codes
func HTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	// 4xx Client Errors
	case contextutils.ErrorCodeInvalidInput, contextutils.ErrorCodeMissingRequired,
		contextutils.ErrorCodeInvalidFormat, contextutils.ErrorCodeValidationFailed:
		return http.StatusBadRequest

	case contextutils.ErrorCodeUnauthorized, contextutils.ErrorCodeSessionExpired,
		contextutils.ErrorCodeInvalidCredentials, contextutils.ErrorCodeAccountDisabled:
		return http.StatusUnauthorized

	case contextutils.ErrorCodeForbidden, contextutils.ErrorCodeCSRFInvalid:
		return http.StatusForbidden

	case contextutils.ErrorCodeRecordNotFound:
		return http.StatusNotFound

	case contextutils.ErrorCodeRecordExists, contextutils.ErrorCodeConflict:
		return http.StatusConflict

	case contextutils.ErrorCodeRateLimit:
		return http.StatusTooManyRequests

	// 5xx Server Errors
	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection:
		return http.StatusServiceUnavailable

	case contextutils.ErrorCodeTimeout:
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}

// IsAdminAPI reports whether the request targets the JSON admin API
func IsAdminAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, AdminAPIPrefix)
}

// IsAdminPage reports whether the request targets an HTML admin page
func IsAdminPage(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, AdminPrefix) && !IsAdminAPI(c)
}
