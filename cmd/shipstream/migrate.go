package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shipstream/internal/config"
	"shipstream/internal/database"
	"shipstream/internal/database/migration"
	"shipstream/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			log, err := logging.New("migrate", cfg.AppVersion)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer log.Sync()

			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			return migration.EnsureMigrated(cmd.Context(), db, log)
		},
	}
}
