// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"fmt"

	"corpsite/internal/observability"
	contextutils "corpsite/internal/utils"

	"github.com/spf13/cobra"
)

// Migrator applies and inspects schema migrations
type Migrator interface {
	RunMigrations(ctx context.Context, databaseURL string) error
	MigrationStatus(ctx context.Context, databaseURL string) (uint, bool, error)
}

// DatabaseCommands returns the database management commands
func DatabaseCommands(migrator Migrator, logger *observability.Logger, databaseURL string) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands.

Available commands:
  migrate   - Apply pending schema migrations
  status    - Show the current schema version`,
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger.Info(ctx, "Applying migrations", map[string]interface{}{"database_url": maskDatabaseURL(databaseURL)})
			if err := migrator.RunMigrations(ctx, databaseURL); err != nil {
				logger.Error(ctx, "Migration failed", err)
				return contextutils.WrapError(err, "migration failed")
			}
			version, _, err := migrator.MigrationStatus(ctx, databaseURL)
			if err != nil {
				return contextutils.WrapError(err, "failed to read schema version")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema is at version %d\n", version)
			return nil
		},
	})

	dbCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, dirty, err := migrator.MigrationStatus(cmd.Context(), databaseURL)
			if err != nil {
				return contextutils.WrapError(err, "failed to read schema version")
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\nVersion:  %d (%s)\n", maskDatabaseURL(databaseURL), version, state)
			return nil
		},
	})

	return dbCmd
}
