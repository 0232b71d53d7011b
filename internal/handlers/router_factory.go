package handlers

import (
	"html/template"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"corpsite/internal/config"
	"corpsite/internal/middleware"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	"corpsite/internal/services"
	"corpsite/internal/sessionstore"
	"corpsite/internal/version"
)

// NewRouter wires the public intake endpoint and the admin console.
// redisClient and limiter may be nil; sessions then live in signed cookies and
// intake is not rate limited.
func NewRouter(
	cfg *config.Config,
	feedbackService serviceinterfaces.FeedbackServiceInterface,
	adminService serviceinterfaces.AdminServiceInterface,
	reportService serviceinterfaces.ReportServiceInterface,
	scheduleService serviceinterfaces.ScheduleServiceInterface,
	limiter services.RateLimiter,
	redisClient *redis.Client,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))
	router.Use(observability.RequestID())
	router.Use(observability.RequestLogger(logger))

	// Health check endpoint (defined before tracing)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "corpsite"})
	})

	router.Use(observability.TracingMiddleware("corpsite-server")...)
	router.RedirectTrailingSlash = false

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get("corpsite"))
	})

	templates := template.Must(LoadTemplates(cfg.Location()))

	feedbackHandler := NewFeedbackHandler(feedbackService, limiter, logger)
	adminFeedbackHandler := NewAdminFeedbackHandler(feedbackService, logger)
	reportHandler := NewReportHandler(reportService, scheduleService, cfg, logger)
	exportHandler := NewExportHandler(feedbackService, cfg, logger)
	userAdminHandler := NewUserAdminHandler(adminService, logger)
	authHandler := NewAuthHandler(adminService, cfg, templates, logger)
	adminHandler := NewAdminHandler(feedbackService, reportService, scheduleService, adminService, cfg, templates, logger)

	// Public intake, called cross-origin by the site's contact form
	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{http.MethodPost}
	corsConfig.AllowHeaders = []string{"Content-Type"}

	public := router.Group("/api", cors.New(corsConfig))
	{
		public.POST("/feedback", feedbackHandler.SubmitFeedback)
		public.OPTIONS("/feedback", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		public.Match([]string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete}, "/feedback", feedbackHandler.MethodNotAllowed)
	}

	// Admin console
	store := sessionstore.NewStore(cfg, redisClient)
	admin := router.Group(middleware.AdminPrefix, middleware.SecurityHeaders(), sessions.Sessions(config.SessionName, store))
	{
		admin.GET("/login", authHandler.LoginPage)
		admin.POST("/login", authHandler.Login)

		guarded := admin.Group("", middleware.RequireAdminSession(adminService, cfg, logger), middleware.VerifyCSRF())
		guarded.GET("", func(c *gin.Context) { c.Redirect(http.StatusFound, HomePath) })
		guarded.POST("/logout", authHandler.Logout)
		guarded.GET("/dashboard", adminHandler.Dashboard)
		guarded.GET("/feedback", adminHandler.FeedbackList)
		guarded.GET("/reports", adminHandler.Reports)
		guarded.GET("/users", middleware.RequirePermission(config.PermissionManageUsers), adminHandler.Users)

		api := guarded.Group("/api")
		{
			api.GET("/feedback", adminFeedbackHandler.GetFeedback)
			api.POST("/feedback", adminFeedbackHandler.UpdateFeedback)
			api.GET("/export", exportHandler.ExportFeedback)
			api.GET("/reports", reportHandler.GenerateReport)
			api.GET("/reports/export", reportHandler.ExportReport)
			api.POST("/schedules", reportHandler.ManageSchedules)
			api.GET("/users", middleware.RequirePermission(config.PermissionManageUsers), userAdminHandler.ListAdmins)
			api.POST("/users", middleware.RequirePermission(config.PermissionManageUsers), userAdminHandler.ManageAdmins)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}
