package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Admin feedback API responses
const (
	MsgFeedbackNotFound = "フィードバックが見つかりません。"
	MsgInvalidRequest   = "無効なリクエストです。"
	MsgStatusUpdated    = "ステータスを更新しました。"
	MsgBulkApplied      = "一括操作を適用しました。"
)

// AdminFeedbackHandler serves /admin/api/feedback.
type AdminFeedbackHandler struct {
	feedbackService serviceinterfaces.FeedbackServiceInterface
	logger          *observability.Logger
}

// NewAdminFeedbackHandler creates an AdminFeedbackHandler.
func NewAdminFeedbackHandler(fs serviceinterfaces.FeedbackServiceInterface, logger *observability.Logger) *AdminFeedbackHandler {
	return &AdminFeedbackHandler{feedbackService: fs, logger: logger}
}

// feedbackUpdateRequest is either a single update (id, status, notes) or a
// bulk action (action, ids).
type feedbackUpdateRequest struct {
	ID     *flexInt  `json:"id"`
	Status string    `json:"status"`
	Notes  string    `json:"notes"`
	Action string    `json:"action"`
	IDs    []flexInt `json:"ids"`
}

// GetFeedback handles GET /admin/api/feedback?id=.
func (h *AdminFeedbackHandler) GetFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_feedback_detail")
	defer observability.FinishSpan(span, nil)

	raw, present := c.GetQuery("id")
	if !present {
		adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		adminFailure(c, http.StatusBadRequest, MsgFeedbackNotFound)
		return
	}
	span.SetAttributes(observability.AttributeFeedbackID(id))

	feedback, err := h.feedbackService.GetFeedbackByID(ctx, id)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			adminFailure(c, http.StatusBadRequest, MsgFeedbackNotFound)
			return
		}
		h.logger.Error(ctx, "get feedback failed", err, map[string]interface{}{"feedback_id": id})
		adminFailure(c, statusFor(err), localized(contextutils.GetErrorCode(err)))
		return
	}

	history, err := h.feedbackService.GetHistory(ctx, id)
	if err != nil {
		h.logger.Error(ctx, "get feedback history failed", err, map[string]interface{}{"feedback_id": id})
		adminFailure(c, statusFor(err), localized(contextutils.GetErrorCode(err)))
		return
	}
	if history == nil {
		history = []models.FeedbackHistory{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "feedback": feedback, "history": history})
}

// UpdateFeedback handles POST /admin/api/feedback for single and bulk updates.
func (h *AdminFeedbackHandler) UpdateFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_feedback")
	defer observability.FinishSpan(span, nil)

	var req feedbackUpdateRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	adminID := currentAdminID(c)

	switch {
	case req.Action != "" && req.IDs != nil:
		action, err := models.ParseBulkAction(req.Action)
		if err != nil || len(req.IDs) == 0 {
			adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
			return
		}
		span.SetAttributes(attribute.String("bulk.action", action.String()), attribute.Int("bulk.count", len(req.IDs)))

		affected, err := h.feedbackService.ApplyBulkAction(ctx, action, toInts(req.IDs), adminID)
		if err != nil {
			h.failUpdate(c, err, "bulk feedback action failed")
			return
		}
		h.logger.Info(ctx, "Bulk feedback action applied", map[string]interface{}{
			"action":   action.String(),
			"affected": affected,
			"admin_id": adminID,
		})
		c.JSON(http.StatusOK, gin.H{"success": true, "message": MsgBulkApplied})

	case req.ID != nil && req.Status != "":
		status, err := models.ParseFeedbackStatus(req.Status)
		if err != nil {
			adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
			return
		}
		id := int(*req.ID)
		span.SetAttributes(observability.AttributeFeedbackID(id))

		if err := h.feedbackService.UpdateStatus(ctx, id, status, req.Notes, adminID); err != nil {
			if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
				adminFailure(c, http.StatusBadRequest, MsgFeedbackNotFound)
				return
			}
			h.failUpdate(c, err, "feedback status update failed")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": MsgStatusUpdated})

	default:
		adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
	}
}

func (h *AdminFeedbackHandler) failUpdate(c *gin.Context, err error, msg string) {
	if isClientError(err) {
		adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	h.logger.Error(c.Request.Context(), msg, err)
	adminFailure(c, statusFor(err), localized(contextutils.GetErrorCode(err)))
}
