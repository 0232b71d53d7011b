package handlers

import (
	"corpsite/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// GetAdminIDFromSession retrieves the signed-in admin id from the session.
// Returns (0, false) if not authenticated or if the stored value is invalid.
func GetAdminIDFromSession(c *gin.Context) (int, bool) {
	return middleware.SessionAdminID(sessions.Default(c))
}

// currentAdminID returns the id of the admin admitted by the session guard
func currentAdminID(c *gin.Context) int {
	if admin, ok := middleware.CurrentAdmin(c); ok {
		return admin.ID
	}
	return 0
}
