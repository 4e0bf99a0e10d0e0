package main

import (
	"context"
	"errors"

	"clinic-api/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				logger.Error().Err(err).Msg("failed to load config")
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("migrate: DB_URL is not set")
			}

			ctx := context.Background()
			db, err := database.Open(ctx, cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer database.Close(db)

			return database.Migrate(ctx, db, logger)
		},
	}
}
