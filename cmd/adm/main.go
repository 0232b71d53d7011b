// Package main provides the corpsite administration CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"corpsite/cmd/adm/commands"
	"corpsite/internal/config"
	"corpsite/internal/database"
	"corpsite/internal/observability"
	"corpsite/internal/services"
	"corpsite/internal/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Disable all OpenTelemetry features for the CLI to avoid connection errors
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "corpsite-adm", zapcore.ErrorLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err)
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	redisClient, err := database.OpenRedis(ctx, cfg.Redis, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to redis: %v\n", err)
		os.Exit(1)
	}
	var locker services.Locker
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		locker = services.NewRedisLocker(redisClient, cfg.Redis.KeyPrefix)
	}

	mailer := services.CreateEmailService(cfg, logger)
	reportService := services.NewReportService(db, cfg, logger)
	scheduleService := services.NewScheduleService(db, logger)
	adminService := services.NewAdminService(db, logger)
	runner := services.NewScheduleRunner(scheduleService, reportService, mailer, locker, cfg, logger)

	loc := cfg.Location()

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Corporate site administration tool",
		Long: `Corporate site administration tool

Manages report schedules, admin accounts and the database schema, and
runs the daily scheduled report batch.`,
		Version:      version.Get("adm").String(),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(commands.ReportCommands(reportService, runner, loc, time.Now, logger))
	rootCmd.AddCommand(commands.ScheduleCommands(scheduleService, loc, logger))
	rootCmd.AddCommand(commands.AdminCommands(adminService, commands.TerminalPasswordReader, loc, logger))
	rootCmd.AddCommand(commands.DatabaseCommands(dbManager, logger, cfg.Database.URL))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
