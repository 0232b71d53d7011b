// Package middleware provides the admin console guard (session, CSRF and
// permission checks), security headers and error recovery for gin.
package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/sessionstore"
	contextutils "corpsite/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Route prefixes the guard distinguishes
const (
	AdminPrefix    = "/admin"
	AdminAPIPrefix = "/admin/api"
	LoginPath      = "/admin/login"
	ExpiredParam   = "expired"
)

// Gin context keys
const (
	// AdminKey holds the signed-in *models.Admin
	AdminKey = "admin"
	// CSRFTokenKey holds the session CSRF token for templates
	CSRFTokenKey = "csrf_token"
)

// AdminLoader resolves the admin named by a session
type AdminLoader interface {
	GetAdminByID(ctx context.Context, id int) (*models.Admin, error)
}

// RequireAdminSession admits requests carrying a live admin session. Pages
// without one are redirected to the login form, API calls get 401. A session
// idle for longer than the configured timeout is destroyed first. Admitted
// requests refresh last_activity and are issued a CSRF token if they have none.
func RequireAdminSession(admins AdminLoader, cfg *config.Config, logger *observability.Logger) gin.HandlerFunc {
	if admins == nil {
		panic("admin loader cannot be nil")
	}
	idleTimeout := config.SessionIdleTimeout
	if cfg != nil && cfg.Session.IdleTimeout > 0 {
		idleTimeout = cfg.Session.IdleTimeout
	}

	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "require_admin_session")
		defer span.End()

		session := sessions.Default(c)
		adminID, ok := SessionAdminID(session)
		if !ok {
			denyUnauthenticated(c, false)
			return
		}

		now := time.Now()
		if last, ok := session.Get(config.SessionKeyLastActivity).(int64); ok && now.Sub(time.Unix(last, 0)) > idleTimeout {
			DestroySession(session)
			logger.Info(ctx, "Admin session expired", map[string]interface{}{"admin_id": adminID})
			denyUnauthenticated(c, true)
			return
		}

		admin, err := admins.GetAdminByID(ctx, adminID)
		if err != nil && !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			logger.Error(ctx, "Failed to load session admin", err, map[string]interface{}{"admin_id": adminID})
			if IsAdminAPI(c) {
				AbortWithAppError(c, err)
				return
			}
			c.String(http.StatusInternalServerError, contextutils.GetLocalizedMessage(contextutils.ErrorCodeInternalError, contextutils.DefaultLocale))
			c.Abort()
			return
		}
		if admin == nil || !admin.IsActive() {
			DestroySession(session)
			denyUnauthenticated(c, false)
			return
		}

		session.Set(config.SessionKeyLastActivity, now.Unix())
		token, _ := session.Get(config.SessionKeyCSRFToken).(string)
		if token == "" {
			token, err = contextutils.GenerateToken(config.CSRFTokenBytes)
			if err != nil {
				logger.Error(ctx, "Failed to generate CSRF token", err)
				AbortWithAppError(c, err)
				return
			}
			session.Set(config.SessionKeyCSRFToken, token)
		}
		if err := session.Save(); err != nil {
			logger.Warn(ctx, "Failed to refresh admin session", map[string]interface{}{"admin_id": adminID, "error": err.Error()})
		}

		c.Set(AdminKey, admin)
		c.Set(CSRFTokenKey, token)
		c.Request = c.Request.WithContext(contextutils.WithAdminID(c.Request.Context(), admin.ID))
		c.Next()
	}
}

// VerifyCSRF rejects state-changing requests whose X-CSRF-Token header or
// csrf_token form field does not match the session token.
func VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		expected, _ := sessions.Default(c).Get(config.SessionKeyCSRFToken).(string)
		actual := c.GetHeader(config.CSRFHeaderName)
		if actual == "" {
			actual = c.PostForm(config.CSRFFormField)
		}
		if !contextutils.TokensEqual(expected, actual) {
			if IsAdminAPI(c) {
				AbortWithAppError(c, contextutils.ErrCSRFInvalid)
				return
			}
			c.String(http.StatusForbidden, contextutils.GetLocalizedMessage(contextutils.ErrorCodeCSRFInvalid, contextutils.DefaultLocale))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePermission admits admins whose role grants permission. It must run
// after RequireAdminSession.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := CurrentAdmin(c)
		if !ok || !admin.HasPermission(permission) {
			if IsAdminAPI(c) {
				AbortWithAppError(c, contextutils.ErrForbidden)
				return
			}
			c.String(http.StatusForbidden, contextutils.GetLocalizedMessage(contextutils.ErrorCodeForbidden, contextutils.DefaultLocale))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentAdmin returns the admin placed in the context by RequireAdminSession
func CurrentAdmin(c *gin.Context) (*models.Admin, bool) {
	v, ok := c.Get(AdminKey)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*models.Admin)
	return admin, ok && admin != nil
}

// CSRFToken returns the token issued for this request
func CSRFToken(c *gin.Context) string {
	return c.GetString(CSRFTokenKey)
}

// SessionAdminID reads the admin id stored at login
func SessionAdminID(session sessions.Session) (int, bool) {
	switch v := session.Get(config.SessionKeyAdminID).(type) {
	case int:
		return v, v > 0
	case int64:
		return int(v), v > 0
	case float64:
		return int(v), v > 0
	}
	return 0, false
}

// StartSession replaces whatever the session held with a fresh signed-in state
// under a new session id
func StartSession(ctx context.Context, session sessions.Session, adminID int, now time.Time) (string, error) {
	token, err := contextutils.GenerateToken(config.CSRFTokenBytes)
	if err != nil {
		return "", err
	}
	if err := sessionstore.Regenerate(ctx, session); err != nil {
		return "", err
	}
	session.Clear()
	session.Set(config.SessionKeyAdminID, adminID)
	session.Set(config.SessionKeyLastActivity, now.Unix())
	session.Set(config.SessionKeyCSRFToken, token)
	if err := session.Save(); err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to save session: %v", err)
	}
	return token, nil
}

// DestroySession clears the session and expires its cookie
func DestroySession(session sessions.Session) {
	session.Clear()
	session.Options(sessions.Options{Path: config.SessionPath, MaxAge: -1})
	_ = session.Save()
}

func denyUnauthenticated(c *gin.Context, expired bool) {
	if IsAdminAPI(c) {
		err := contextutils.ErrUnauthorized
		if expired {
			err = contextutils.ErrSessionExpired
		}
		AbortWithAppError(c, err)
		return
	}
	target := LoginPath
	if expired {
		target += "?" + url.Values{ExpiredParam: {"1"}}.Encode()
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}
