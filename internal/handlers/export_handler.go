package handlers

import (
	"bytes"
	"net/http"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/export"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ExportHandler serves feedback downloads.
type ExportHandler struct {
	feedbackService serviceinterfaces.FeedbackServiceInterface
	config          *config.Config
	logger          *observability.Logger
	now             func() time.Time
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(fs serviceinterfaces.FeedbackServiceInterface, cfg *config.Config, logger *observability.Logger) *ExportHandler {
	return &ExportHandler{feedbackService: fs, config: cfg, logger: logger, now: time.Now}
}

// ExportFeedback handles GET /admin/api/export. The list filters apply as on
// the feedback page but without pagination.
func (h *ExportHandler) ExportFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "export_feedback")
	defer observability.FinishSpan(span, nil)

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.fail(c, err)
		return
	}
	filter := ParseFeedbackFilter(c)
	span.SetAttributes(
		attribute.String("export.format", string(format)),
		observability.AttributeSearch(filter.Search),
		observability.AttributeTypeFilter(filter.Type),
		observability.AttributeStatusFilter(filter.Status),
	)

	items, err := h.feedbackService.ListAllFeedback(ctx, filter)
	if err != nil {
		h.fail(c, err)
		return
	}

	loc := h.config.Location()
	var buf bytes.Buffer
	if err := export.Write(&buf, format, export.FeedbackTable(items, loc)); err != nil {
		h.fail(c, err)
		return
	}
	span.SetAttributes(attribute.Int("export.rows", len(items)))

	attachment(c, export.Filename("feedback", h.now().In(loc), format), format.ContentType(), buf.Bytes())
}

func (h *ExportHandler) fail(c *gin.Context, err error) {
	h.logger.Error(c.Request.Context(), "feedback export failed", err)
	c.String(http.StatusInternalServerError, localized(contextutils.ErrorCodeExportFailed))
}
