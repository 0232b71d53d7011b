package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	"corpsite/internal/services"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Public intake responses
const (
	MsgBadMethod       = "不正なリクエストです"
	MsgInvalidJSON     = "無効なJSONデータです"
	MsgDatabaseError   = "データベースエラーが発生しました"
	MsgUnexpectedError = "予期せぬエラーが発生しました"
	MsgFeedbackThanks  = "フィードバックを送信しました。ご協力ありがとうございます。"
)

const maxSubmissionBytes = 64 << 10

// FeedbackHandler serves the public feedback form endpoint.
type FeedbackHandler struct {
	feedbackService serviceinterfaces.FeedbackServiceInterface
	limiter         services.RateLimiter
	logger          *observability.Logger
}

// NewFeedbackHandler creates a FeedbackHandler. limiter may be nil to disable
// rate limiting.
func NewFeedbackHandler(fs serviceinterfaces.FeedbackServiceInterface, limiter services.RateLimiter, logger *observability.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: fs,
		limiter:         limiter,
		logger:          logger,
	}
}

// SubmitFeedback handles POST /api/feedback.
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_feedback")
	defer observability.FinishSpan(span, nil)

	if h.limiter != nil && !h.limiter.Allow(ctx, "feedback:"+c.ClientIP()) {
		h.logger.Warn(ctx, "Feedback rate limit exceeded", map[string]interface{}{"client_ip": c.ClientIP()})
		publicFailure(c, http.StatusTooManyRequests, localized(contextutils.ErrorCodeRateLimit))
		return
	}

	sub, ok := decodeSubmission(c.Request.Body)
	if !ok {
		publicFailure(c, http.StatusBadRequest, MsgInvalidJSON)
		return
	}
	span.SetAttributes(attribute.String("feedback.type", sub.Type))

	if _, err := h.feedbackService.CreateFeedback(ctx, sub); err != nil {
		var appErr *contextutils.AppError
		switch {
		case contextutils.AsError(err, &appErr) && appErr.Code == contextutils.ErrorCodeValidationFailed:
			publicFailure(c, http.StatusBadRequest, appErr.Message)
		case isDatabaseError(err):
			h.logger.Error(ctx, "Failed to store feedback", err)
			publicFailure(c, http.StatusInternalServerError, MsgDatabaseError)
		default:
			h.logger.Error(ctx, "Failed to accept feedback", err)
			publicFailure(c, http.StatusInternalServerError, MsgUnexpectedError)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": MsgFeedbackThanks})
}

// MethodNotAllowed answers any other method on /api/feedback.
func (h *FeedbackHandler) MethodNotAllowed(c *gin.Context) {
	publicFailure(c, http.StatusMethodNotAllowed, MsgBadMethod)
}

// decodeSubmission accepts a non-empty JSON object whose known keys are strings
func decodeSubmission(body io.Reader) (*models.FeedbackSubmission, bool) {
	raw, err := io.ReadAll(io.LimitReader(body, maxSubmissionBytes))
	if err != nil {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return nil, false
	}
	var sub models.FeedbackSubmission
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&sub); err != nil {
		return nil, false
	}
	return &sub, true
}

func isDatabaseError(err error) bool {
	switch contextutils.GetErrorCode(err) {
	case contextutils.ErrorCodeDatabaseConnection, contextutils.ErrorCodeDatabaseQuery,
		contextutils.ErrorCodeDatabaseTransaction:
		return true
	}
	return false
}
