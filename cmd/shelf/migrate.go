package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/shelf/config"
	"github.com/sagarc03/shelf/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the items table for the configured backend",
	Long: `Create the items table, index, key prefix or directory the
configured backend needs, then check that the schema matches what the
server expects. Running it again is safe.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := database.Open(ctx, cfg.Database, database.OpenOptions{
		Migrate:     true,
		PingTimeout: cfg.Server.StartupTimeout,
	})
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	defer func() { _ = db.Close() }()

	slog.Info("migration complete", "type", cfg.Database.Type, "table", cfg.Database.Tables.Items)
	return nil
}
