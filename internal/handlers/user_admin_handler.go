package handlers

import (
	"encoding/json"
	"net/http"

	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Admin account API responses
const (
	MsgAdminToggled    = "アカウントのステータスを変更しました。"
	MsgAdminNotFound   = "管理者が見つかりません。"
	MsgCannotToggleOwn = "自分のアカウントは変更できません。"
)

// UserAdminHandler manages back-office accounts. Routes are gated on the
// manage_users permission.
type UserAdminHandler struct {
	adminService serviceinterfaces.AdminServiceInterface
	logger       *observability.Logger
}

// NewUserAdminHandler creates a new UserAdminHandler instance
func NewUserAdminHandler(adminService serviceinterfaces.AdminServiceInterface, logger *observability.Logger) *UserAdminHandler {
	return &UserAdminHandler{adminService: adminService, logger: logger}
}

type adminActionRequest struct {
	Action string   `json:"action"`
	ID     *flexInt `json:"id"`
}

// ListAdmins handles GET /admin/api/users
func (h *UserAdminHandler) ListAdmins(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_admins")
	defer observability.FinishSpan(span, nil)

	admins, err := h.adminService.ListAdmins(ctx)
	if err != nil {
		h.logger.Error(ctx, "Error retrieving admins", err)
		adminFailure(c, statusFor(err), localized(contextutils.GetErrorCode(err)))
		return
	}
	if admins == nil {
		admins = []models.Admin{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "admins": admins})
}

// ManageAdmins handles POST /admin/api/users {action: toggle, id}
func (h *UserAdminHandler) ManageAdmins(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "manage_admins")
	defer observability.FinishSpan(span, nil)

	var req adminActionRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil || req.ID == nil {
		adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	if _, err := models.ParseAdminAction(req.Action); err != nil {
		adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	target := int(*req.ID)
	span.SetAttributes(attribute.Int("target.admin.id", target))

	admin, err := h.adminService.ToggleStatus(ctx, target, currentAdminID(c))
	if err != nil {
		switch {
		case contextutils.IsError(err, contextutils.ErrForbidden):
			adminFailure(c, http.StatusForbidden, MsgCannotToggleOwn)
		case contextutils.IsError(err, contextutils.ErrRecordNotFound):
			adminFailure(c, http.StatusNotFound, MsgAdminNotFound)
		default:
			h.logger.Error(ctx, "Error toggling admin status", err, map[string]interface{}{"target_admin_id": target})
			adminFailure(c, statusFor(err), localized(contextutils.GetErrorCode(err)))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": MsgAdminToggled, "admin": admin})
}
