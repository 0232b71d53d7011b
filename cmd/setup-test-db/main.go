// Package main resets a development or test database and loads fixture data:
// admins, feedback with status history and report schedules. It permanently
// deletes existing data in the target database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"corpsite/internal/config"
	"corpsite/internal/database"
	"corpsite/internal/observability"
	"corpsite/internal/services"

	"go.uber.org/zap/zapcore"
)

func main() {
	ctx := context.Background()

	fixturesPath := flag.String("fixtures", "", "fixture YAML file (defaults to the built-in set)")
	verbose := flag.Bool("verbose", false, "log progress")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	logLevel := zapcore.WarnLevel
	if *verbose {
		logLevel = zapcore.InfoLevel
	}
	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "setup-test-db", logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	cfg.Database.RunMigrations = true

	data := defaultFixtures
	if *fixturesPath != "" {
		if data, err = os.ReadFile(*fixturesPath); err != nil {
			logger.Error(ctx, "Failed to read fixtures", err, map[string]interface{}{"path": *fixturesPath})
			os.Exit(1)
		}
	}
	fixtures, err := ParseFixtures(data)
	if err != nil {
		logger.Error(ctx, "Failed to parse fixtures", err)
		os.Exit(1)
	}

	db, err := database.NewManager(logger).InitDBWithConfig(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to initialize database", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Failed to close database", map[string]interface{}{"error": err.Error()})
		}
	}()

	loader := NewLoader(db, services.NewAdminService(db, logger), services.NewScheduleService(db, logger), cfg.Location(), logger)
	if err := loader.Reset(ctx); err != nil {
		logger.Error(ctx, "Failed to reset database", err)
		os.Exit(1)
	}
	if err := loader.Load(ctx, fixtures); err != nil {
		logger.Error(ctx, "Failed to load fixtures", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %d admins, %d feedback, %d schedules\n", len(fixtures.Admins), len(fixtures.Feedback), len(fixtures.Schedules))
}
