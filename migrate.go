package main

import (
	"github.com/spf13/cobra"

	"payment-webhook-service/internal/config"
	"payment-webhook-service/internal/db"
	"payment-webhook-service/internal/logging"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustLoadConfig(configPath)
			logger := logging.GetLogger(cfg.Logs)

			connStr, err := db.GetConnStr(cfg.Database)
			if err != nil {
				return err
			}
			if err := db.RunMigrations(connStr); err != nil {
				return err
			}

			logger.Info("Migrations applied")
			return nil
		},
	}
}
