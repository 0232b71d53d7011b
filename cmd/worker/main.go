// Package main provides the entry point for the scheduled report worker.
// SIGHUP forces an immediate run that ignores the once-per-day guard.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/di"
	"corpsite/internal/handlers"
	"corpsite/internal/observability"
	"corpsite/internal/version"
	"corpsite/internal/worker"
)

// fatalIfErr logs the error with context and panics with a consistent message
func fatalIfErr(ctx context.Context, logger *observability.Logger, msg string, err error, fields map[string]interface{}) {
	logger.Error(ctx, msg, err, fields)
	panic(msg + ": " + err.Error())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.NewConfig()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	cfg.OpenTelemetry.ServiceVersion = version.Version

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "corpsite-worker", observability.ParseLevel(cfg.Server.LogLevel))
	if err != nil {
		panic("Failed to initialize observability: " + err.Error())
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		observability.Shutdown(shutdownCtx, tp, mp, logger)
	}()

	logger.Info(ctx, "Starting corpsite worker", map[string]interface{}{
		"port":     cfg.Server.WorkerPort,
		"interval": cfg.Reports.WorkerInterval.String(),
		"run_hour": cfg.Reports.RunHour,
		"redis":    cfg.Redis.Enabled(),
		"version":  version.Get("corpsite-worker").String(),
	})

	// Migrations belong to the server and `adm db migrate`
	cfg.Database.RunMigrations = false
	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		fatalIfErr(ctx, logger, "Failed to initialize services", err, nil)
	}

	runner, err := container.GetScheduleRunner()
	if err != nil {
		fatalIfErr(ctx, logger, "Failed to get schedule runner", err, nil)
	}

	workerInstance := worker.NewWorker(runner, "default", cfg, logger)
	loopDone := make(chan struct{})
	go func() {
		workerInstance.Start(ctx)
		close(loopDone)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.WorkerPort,
		Handler:           handlers.NewWorkerRouter(cfg, workerInstance, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info(ctx, "Worker status server starting", map[string]interface{}{"port": cfg.Server.WorkerPort})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatalIfErr(ctx, logger, "Failed to start worker server", err, map[string]interface{}{"port": cfg.Server.WorkerPort})
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range signals {
		if sig == syscall.SIGHUP {
			workerInstance.TriggerManualRun()
			continue
		}
		break
	}
	logger.Info(ctx, "Worker shutting down", map[string]interface{}{"service": "worker"})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.WorkerShutdownTimeout)
	defer shutdownCancel()

	cancel()
	select {
	case <-loopDone:
	case <-shutdownCtx.Done():
		logger.Warn(ctx, "Worker loop did not stop before the shutdown timeout")
	}

	if err := workerInstance.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Failed to shutdown worker", map[string]interface{}{"error": err.Error()})
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Worker server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Failed to release worker resources", map[string]interface{}{"error": err.Error()})
	}

	logger.Info(ctx, "Worker exited", map[string]interface{}{"service": "worker"})
}
