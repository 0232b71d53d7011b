package handlers

import (
	"net/http"

	"corpsite/internal/middleware"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
)

// HandleAppError writes the standard JSON error payload for err
func HandleAppError(c *gin.Context, err error) {
	middleware.HandleAppError(c, err)
}

// adminFailure answers an admin API call with {success:false, message}
func adminFailure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// reportFailure answers a report API call with {success:false, error}
func reportFailure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// publicFailure answers the public intake endpoint with {error}
func publicFailure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// localized returns the user-facing text for an error code
func localized(code contextutils.ErrorCode) string {
	return contextutils.GetLocalizedMessage(code, contextutils.DefaultLocale)
}

// statusFor maps err to an HTTP status, treating unknown errors as 500
func statusFor(err error) int {
	return middleware.HTTPStatus(contextutils.GetErrorCode(err))
}

// isClientError reports whether err is the caller's fault
func isClientError(err error) bool {
	s := statusFor(err)
	return s >= http.StatusBadRequest && s < http.StatusInternalServerError
}
