package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/export"
	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Report API responses
const (
	MsgInvalidReportType = "無効なレポートタイプです。"
	MsgInvalidReportDate = "無効な日付です。"
	MsgReportFailed      = "レポートの生成中にエラーが発生しました。"
	MsgScheduleCreated   = "配信設定を追加しました。"
	MsgScheduleToggled   = "配信設定のステータスを変更しました。"
	MsgScheduleDeleted   = "配信設定を削除しました。"
	MsgScheduleNotFound  = "配信設定が見つかりません。"
	MsgInvalidEmail      = "有効なメールアドレスを入力してください。"
)

// ReportHandler serves report generation, report export and schedule management.
type ReportHandler struct {
	reportService   serviceinterfaces.ReportServiceInterface
	scheduleService serviceinterfaces.ScheduleServiceInterface
	config          *config.Config
	logger          *observability.Logger
	now             func() time.Time
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(rs serviceinterfaces.ReportServiceInterface, ss serviceinterfaces.ScheduleServiceInterface, cfg *config.Config, logger *observability.Logger) *ReportHandler {
	return &ReportHandler{
		reportService:   rs,
		scheduleService: ss,
		config:          cfg,
		logger:          logger,
		now:             time.Now,
	}
}

// reportQuery reads type and date, defaulting to a daily report for today
func (h *ReportHandler) reportQuery(c *gin.Context) (models.ReportType, string, string) {
	reportType, err := models.ParseReportType(c.DefaultQuery("type", string(models.ReportDaily)))
	if err != nil {
		return "", "", MsgInvalidReportType
	}
	date := c.Query("date")
	if date == "" {
		date = h.now().In(h.config.Location()).Format(contextutils.DateLayout)
	}
	if _, err := contextutils.ParseDateInLocation(date, h.config.Location()); err != nil {
		return "", "", MsgInvalidReportDate
	}
	return reportType, date, ""
}

// GenerateReport handles GET /admin/api/reports?type=&date=. The report is
// recomputed and stored on every call.
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "generate_report")
	defer observability.FinishSpan(span, nil)

	reportType, date, problem := h.reportQuery(c)
	if problem != "" {
		reportFailure(c, http.StatusBadRequest, problem)
		return
	}
	span.SetAttributes(observability.AttributeReportType(string(reportType)), observability.AttributeReportDate(date))

	report, err := h.reportService.Generate(ctx, reportType, date, currentAdminID(c))
	if err != nil {
		if isClientError(err) {
			reportFailure(c, http.StatusBadRequest, MsgInvalidReportDate)
			return
		}
		h.logger.Error(ctx, "report generation failed", err, map[string]interface{}{
			"report_type": string(reportType),
			"date":        date,
		})
		reportFailure(c, http.StatusInternalServerError, MsgReportFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// ExportReport handles GET /admin/api/reports/export?type=&date=&format=.
// A report that was never generated for the date is generated first.
func (h *ReportHandler) ExportReport(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "export_report")
	defer observability.FinishSpan(span, nil)

	reportType, date, problem := h.reportQuery(c)
	if problem != "" {
		c.String(http.StatusBadRequest, problem)
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.logger.Error(ctx, "report export failed", err)
		c.String(http.StatusInternalServerError, localized(contextutils.ErrorCodeExportFailed))
		return
	}
	span.SetAttributes(observability.AttributeReportType(string(reportType)), attribute.String("export.format", string(format)))

	report, _, err := h.reportService.EnsureReport(ctx, reportType, date, currentAdminID(c))
	if err != nil {
		h.logger.Error(ctx, "report export failed", err, map[string]interface{}{"report_type": string(reportType), "date": date})
		c.String(http.StatusInternalServerError, localized(contextutils.ErrorCodeExportFailed))
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, export.ReportTable(report)); err != nil {
		h.logger.Error(ctx, "report export failed", err)
		c.String(http.StatusInternalServerError, localized(contextutils.ErrorCodeExportFailed))
		return
	}

	prefix := "report_" + string(reportType) + "_" + date
	attachment(c, export.Filename(prefix, h.now().In(h.config.Location()), format), format.ContentType(), buf.Bytes())
}

// scheduleRequest is the body of POST /admin/api/schedules
type scheduleRequest struct {
	Action string   `json:"action"`
	ID     *flexInt `json:"id"`
	Type   string   `json:"type"`
	Email  string   `json:"email"`
}

// ManageSchedules handles POST /admin/api/schedules.
func (h *ReportHandler) ManageSchedules(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "manage_schedules")
	defer observability.FinishSpan(span, nil)

	var req scheduleRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	action, err := models.ParseScheduleAction(req.Action)
	if err != nil {
		adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	span.SetAttributes(attribute.String("schedule.action", string(action)))

	switch action {
	case models.ScheduleCreate:
		reportType, err := models.ParseReportType(req.Type)
		if err != nil {
			adminFailure(c, http.StatusBadRequest, MsgInvalidReportType)
			return
		}
		schedule, err := h.scheduleService.CreateSchedule(ctx, reportType, req.Email, currentAdminID(c))
		if err != nil {
			if contextutils.IsError(err, contextutils.ErrInvalidFormat) {
				adminFailure(c, http.StatusBadRequest, MsgInvalidEmail)
				return
			}
			h.failSchedule(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": MsgScheduleCreated, "schedule": schedule})

	case models.ScheduleToggle:
		if req.ID == nil {
			adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
			return
		}
		schedule, err := h.scheduleService.ToggleSchedule(ctx, int(*req.ID))
		if err != nil {
			h.failSchedule(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": MsgScheduleToggled, "schedule": schedule})

	case models.ScheduleDelete:
		if req.ID == nil {
			adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
			return
		}
		if err := h.scheduleService.DeleteSchedule(ctx, int(*req.ID)); err != nil {
			h.failSchedule(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": MsgScheduleDeleted})
	}
}

func (h *ReportHandler) failSchedule(c *gin.Context, err error) {
	switch {
	case contextutils.IsError(err, contextutils.ErrRecordNotFound):
		adminFailure(c, http.StatusNotFound, MsgScheduleNotFound)
	case isClientError(err):
		adminFailure(c, http.StatusBadRequest, MsgInvalidRequest)
	default:
		h.logger.Error(c.Request.Context(), "schedule update failed", err)
		adminFailure(c, statusFor(err), localized(contextutils.GetErrorCode(err)))
	}
}

// attachment sends body as a file download
func attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Cache-Control", "max-age=0")
	c.Data(http.StatusOK, contentType, body)
}
