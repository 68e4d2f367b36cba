package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiokaizen/bear-vision/internal/cli/config"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply every pending migration of the configured database.

Other commands apply pending migrations on start, so running this
command is only needed to prepare a database ahead of time.`,
		Example: `  bearvision migrate
  bearvision migrate status`,
		RunE: runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE:  runMigrateStatus,
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	version, err := cc.Store.MigrationVersion(cmd.Context())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Database is at version %d\n", version)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := config.GetConfig(ctx)
	if err != nil {
		return err
	}
	store, err := storage.Open(ctx, storage.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Logger: config.GetLogger(ctx),
	})
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	version, err := store.MigrationVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Driver:  %s\n", store.Driver())
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Version: %d\n", version)
	return nil
}
