package handlers

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/middleware"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// HomePath is where a signed-in admin lands
const HomePath = "/admin/feedback"

// MsgLoginSystemError is shown when sign-in fails for reasons other than the credentials
const MsgLoginSystemError = "システムエラーが発生しました。時間をおいて再度お試しください。"

// AuthHandler handles sign-in and sign-out of the back office
type AuthHandler struct {
	adminService serviceinterfaces.AdminServiceInterface
	config       *config.Config
	templates    *template.Template
	logger       *observability.Logger
	now          func() time.Time
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(adminService serviceinterfaces.AdminServiceInterface, cfg *config.Config, templates *template.Template, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		adminService: adminService,
		config:       cfg,
		templates:    templates,
		logger:       logger,
		now:          time.Now,
	}
}

// LoginPage handles GET /admin/login
func (h *AuthHandler) LoginPage(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "login_page")
	defer observability.FinishSpan(span, nil)

	if _, ok := GetAdminIDFromSession(c); ok {
		c.Redirect(http.StatusFound, HomePath)
		return
	}
	h.renderLogin(c, http.StatusOK, "", "", c.Query(middleware.ExpiredParam) == "1")
}

// Login handles POST /admin/login
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	span.SetAttributes(attribute.Bool("auth.password_provided", password != ""))

	admin, err := h.adminService.Authenticate(ctx, email, password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case contextutils.IsError(err, contextutils.ErrInvalidCredentials), contextutils.IsError(err, contextutils.ErrAccountDisabled):
			h.logger.Warn(ctx, "Admin sign-in rejected", map[string]interface{}{"email": email, "reason": string(contextutils.GetErrorCode(err))})
			h.renderLogin(c, http.StatusUnauthorized, localized(contextutils.GetErrorCode(err)), email, false)
		default:
			h.logger.Error(ctx, "Admin sign-in failed", err, map[string]interface{}{"email": email})
			h.renderLogin(c, http.StatusInternalServerError, MsgLoginSystemError, email, false)
		}
		return
	}
	span.SetAttributes(observability.AttributeAdminID(admin.ID))

	if _, err := middleware.StartSession(ctx, sessions.Default(c), admin.ID, h.now()); err != nil {
		h.logger.Error(ctx, "Failed to save session", err, map[string]interface{}{"admin_id": admin.ID})
		h.renderLogin(c, http.StatusInternalServerError, MsgLoginSystemError, email, false)
		return
	}

	h.logger.Info(ctx, "Admin signed in", map[string]interface{}{"admin_id": admin.ID})
	c.Redirect(http.StatusFound, HomePath)
}

// Logout handles POST /admin/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	if id, ok := GetAdminIDFromSession(c); ok {
		span.SetAttributes(observability.AttributeAdminID(id))
		h.logger.Info(ctx, "Admin signed out", map[string]interface{}{"admin_id": id})
	}
	middleware.DestroySession(sessions.Default(c))
	c.Redirect(http.StatusFound, middleware.LoginPath)
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, message, email string, expired bool) {
	data := gin.H{
		"SiteName": h.config.Server.SiteName,
		"Error":    message,
		"Email":    email,
		"Expired":  expired,
	}
	if h.templates == nil {
		c.JSON(status, data)
		return
	}
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	if err := h.templates.ExecuteTemplate(c.Writer, "login.html", data); err != nil {
		h.logger.Error(c.Request.Context(), "Template execution failed", err, map[string]interface{}{"template": "login.html"})
	}
}
