package handlers

import (
	"net/http"

	"corpsite/internal/config"
	"corpsite/internal/middleware"
	"corpsite/internal/observability"
	"corpsite/internal/version"
	"corpsite/internal/worker"

	"github.com/gin-gonic/gin"
)

// WorkerStatusSource is the read side of the report worker
type WorkerStatusSource interface {
	GetInstance() string
	GetStatus() worker.Status
	GetHistory() []worker.RunRecord
	GetActivityLogs() []worker.ActivityLog
}

// WorkerHandler serves the worker's internal status endpoints
type WorkerHandler struct {
	worker WorkerStatusSource
}

// NewWorkerHandler creates a new WorkerHandler
func NewWorkerHandler(w WorkerStatusSource) *WorkerHandler {
	return &WorkerHandler{worker: w}
}

// GetWorkerDetails returns the status with run history and recent activity
func (h *WorkerHandler) GetWorkerDetails(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_worker_details")
	defer observability.FinishSpan(span, nil)

	c.JSON(http.StatusOK, gin.H{
		"instance": h.worker.GetInstance(),
		"status":   h.worker.GetStatus(),
		"history":  h.worker.GetHistory(),
		"logs":     h.worker.GetActivityLogs(),
	})
}

// GetWorkerStatus returns the current status only
func (h *WorkerHandler) GetWorkerStatus(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_worker_status")
	defer observability.FinishSpan(span, nil)

	c.JSON(http.StatusOK, h.worker.GetStatus())
}

// NewWorkerRouter builds the worker's status router
func NewWorkerRouter(cfg *config.Config, w WorkerStatusSource, logger *observability.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))
	router.Use(observability.RequestID())
	router.Use(observability.RequestLogger(logger))
	router.Use(observability.TracingMiddleware("corpsite-worker")...)

	h := NewWorkerHandler(w)
	v1 := router.Group("/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Get("worker"))
		})
		v1.GET("/worker", h.GetWorkerDetails)
		v1.GET("/worker/status", h.GetWorkerStatus)
	}
	return router
}
