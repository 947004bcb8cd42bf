package main

import (
	"log/slog"
	"os"

	"appraisal-backend/internal/config"
	"appraisal-backend/internal/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

			db, err := database.NewConnection(cfg.DB)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			slog.Info("Schema is up to date", slog.Int("models", len(database.Models())))
			return nil
		},
	}
}
