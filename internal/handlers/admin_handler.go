package handlers

import (
	"html/template"
	"net/http"
	"strconv"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/middleware"
	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// pagerWindow is the number of page links shown at once
const pagerWindow = 5

// AdminHandler renders the back-office pages
type AdminHandler struct {
	feedbackService serviceinterfaces.FeedbackServiceInterface
	reportService   serviceinterfaces.ReportServiceInterface
	scheduleService serviceinterfaces.ScheduleServiceInterface
	adminService    serviceinterfaces.AdminServiceInterface
	config          *config.Config
	templates       *template.Template
	logger          *observability.Logger
	now             func() time.Time
}

// NewAdminHandler creates an AdminHandler. With nil templates every page
// answers with its data as JSON.
func NewAdminHandler(
	feedbackService serviceinterfaces.FeedbackServiceInterface,
	reportService serviceinterfaces.ReportServiceInterface,
	scheduleService serviceinterfaces.ScheduleServiceInterface,
	adminService serviceinterfaces.AdminServiceInterface,
	cfg *config.Config,
	templates *template.Template,
	logger *observability.Logger,
) *AdminHandler {
	return &AdminHandler{
		feedbackService: feedbackService,
		reportService:   reportService,
		scheduleService: scheduleService,
		adminService:    adminService,
		config:          cfg,
		templates:       templates,
		logger:          logger,
		now:             time.Now,
	}
}

// pageData returns the fields every page layout needs
func (h *AdminHandler) pageData(c *gin.Context, title, page string) gin.H {
	admin, _ := middleware.CurrentAdmin(c)
	return gin.H{
		"Title":          title,
		"SiteName":       h.config.Server.SiteName,
		"Admin":          admin,
		"CSRFToken":      middleware.CSRFToken(c),
		"CurrentPage":    page,
		"CanManageUsers": admin.HasPermission(config.PermissionManageUsers),
	}
}

func (h *AdminHandler) render(c *gin.Context, name string, data gin.H) {
	if h.templates == nil {
		c.JSON(http.StatusOK, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	if err := h.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		h.logger.Error(c.Request.Context(), "Template execution failed", err, map[string]interface{}{"template": name})
		c.String(http.StatusInternalServerError, localized(contextutils.ErrorCodeInternalError))
	}
}

func (h *AdminHandler) pageError(c *gin.Context, msg string, err error) {
	h.logger.Error(c.Request.Context(), msg, err)
	c.String(statusFor(err), localized(contextutils.GetErrorCode(err)))
}

// Dashboard renders GET /admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "dashboard_page")
	defer observability.FinishSpan(span, nil)

	stats, err := h.feedbackService.GetDashboardStats(ctx)
	if err != nil {
		h.pageError(c, "Failed to load dashboard stats", err)
		return
	}

	data := h.pageData(c, "管理者ダッシュボード", "dashboard")
	data["Stats"] = stats
	h.render(c, "dashboard.html", data)
}

// FeedbackList renders GET /admin/feedback. A valid id query opens that
// item's detail panel.
func (h *AdminHandler) FeedbackList(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "feedback_page")
	defer observability.FinishSpan(span, nil)

	page := ParsePage(c)
	filter := ParseFeedbackFilter(c)
	span.SetAttributes(
		observability.AttributePage(page),
		observability.AttributeSearch(filter.Search),
		observability.AttributeTypeFilter(filter.Type),
		observability.AttributeStatusFilter(filter.Status),
	)

	result, err := h.feedbackService.ListFeedback(ctx, filter, page)
	if err != nil {
		if isClientError(err) {
			c.String(http.StatusBadRequest, localized(contextutils.GetErrorCode(err)))
			return
		}
		h.pageError(c, "Failed to list feedback", err)
		return
	}
	options, err := h.feedbackService.GetFilterOptions(ctx)
	if err != nil {
		h.pageError(c, "Failed to load filter options", err)
		return
	}

	selected, _ := strconv.Atoi(c.Query("id"))
	query := FilterQuery(filter)

	data := h.pageData(c, "フィードバック管理", "feedback")
	data["Page"] = result
	data["Filter"] = filter
	data["Options"] = options
	data["PageNumbers"] = PageNumbers(result.Page, result.TotalPages, pagerWindow)
	data["PageQuery"] = template.URL(query)
	data["ExportQuery"] = template.URL(query)
	data["SelectedID"] = max(selected, 0)
	h.render(c, "feedback.html", data)
}

// Reports renders GET /admin/reports
func (h *AdminHandler) Reports(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "reports_page")
	defer observability.FinishSpan(span, nil)

	recent, err := h.reportService.ListRecent(ctx, config.RecentReportsLimit)
	if err != nil {
		h.pageError(c, "Failed to list reports", err)
		return
	}
	schedules, err := h.scheduleService.ListSchedules(ctx, false)
	if err != nil {
		h.pageError(c, "Failed to list schedules", err)
		return
	}
	span.SetAttributes(attribute.Int("reports.count", len(recent)), attribute.Int("schedules.count", len(schedules)))

	data := h.pageData(c, "レポート", "reports")
	data["ReportTypes"] = models.AllReportTypes
	data["Today"] = h.now().In(h.config.Location()).Format(contextutils.DateLayout)
	data["Recent"] = recent
	data["Schedules"] = schedules
	h.render(c, "reports.html", data)
}

// Users renders GET /admin/users
func (h *AdminHandler) Users(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "users_page")
	defer observability.FinishSpan(span, nil)

	admins, err := h.adminService.ListAdmins(ctx)
	if err != nil {
		h.pageError(c, "Failed to list admins", err)
		return
	}

	data := h.pageData(c, "管理者一覧", "users")
	data["Admins"] = admins
	h.render(c, "users.html", data)
}
