// Package main provides the HTTP server for the corporate site back-office:
// the public feedback intake, the admin console pages and the admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/di"
	"corpsite/internal/handlers"
	"corpsite/internal/observability"
	contextutils "corpsite/internal/utils"
	"corpsite/internal/version"
)

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	server    *http.Server
}

// NewApplication creates a new application instance
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	feedbackService, err := container.GetFeedbackService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get feedback service")
	}

	adminService, err := container.GetAdminService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get admin service")
	}

	reportService, err := container.GetReportService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get report service")
	}

	scheduleService, err := container.GetScheduleService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get schedule service")
	}

	cfg := container.GetConfig()
	router := handlers.NewRouter(
		cfg,
		feedbackService,
		adminService,
		reportService,
		scheduleService,
		container.GetRateLimiter(),
		container.GetRedis(),
		container.GetLogger(),
	)

	return &Application{
		container: container,
		server: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until the server is shut down
func (a *Application) Run() error {
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return contextutils.WrapError(err, "server failed")
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the container's resources
func (a *Application) Shutdown(ctx context.Context) error {
	if err := a.server.Shutdown(ctx); err != nil {
		return contextutils.WrapError(err, "http server shutdown failed")
	}
	return a.container.Shutdown(ctx)
}

func main() {
	ctx := context.Background()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.OpenTelemetry.ServiceVersion = version.Version

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "corpsite-server", observability.ParseLevel(cfg.Server.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		observability.Shutdown(shutdownCtx, tp, mp, logger)
	}()

	logger.Info(ctx, "Starting corpsite server", map[string]interface{}{
		"port":     cfg.Server.Port,
		"logLevel": cfg.Server.LogLevel,
		"timezone": cfg.Server.Timezone,
		"redis":    cfg.Redis.Enabled(),
		"version":  version.Get("corpsite").String(),
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err)
		os.Exit(1)
	}

	if err := container.EnsureAdminUser(ctx); err != nil {
		logger.Error(ctx, "Failed to ensure admin user exists", err, map[string]interface{}{
			"admin_email": contextutils.MaskEmail(cfg.Server.AdminEmail),
		})
		os.Exit(1)
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err)
		os.Exit(1)
	}

	appErr := make(chan error, 1)
	go func() {
		appErr <- app.Run()
	}()

	select {
	case <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully")
	case err := <-appErr:
		if err != nil {
			logger.Error(ctx, "Application failed", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during application shutdown", err)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed successfully")
}
