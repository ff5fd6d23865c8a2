package main

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	_ "github.com/lib/pq"

	"podstudio/migrations"
)

func migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the record store migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			db, err := sql.Open("postgres", cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("opening DB connection: %w", err)
			}
			defer db.Close()

			goose.SetBaseFS(migrations.FS)
			if err := goose.SetDialect("postgres"); err != nil {
				return fmt.Errorf("setting goose dialect: %w", err)
			}

			if down {
				if err := goose.DownContext(cmd.Context(), db, "."); err != nil {
					return fmt.Errorf("rolling back migration: %w", err)
				}
				logger.Info().Msg("rolled back one migration")
				return nil
			}
			if err := goose.UpContext(cmd.Context(), db, "."); err != nil {
				return fmt.Errorf("applying migrations: %w", err)
			}
			version, err := goose.GetDBVersionContext(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("reading schema version: %w", err)
			}
			logger.Info().Int64("version", version).Msg("migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	return cmd
}
