package main

import (
	"post-reorder-backend/pkg/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd applies the schema migrations for the configured driver
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := database.Migrate(cfg.DatabaseConfig()); err != nil {
			return err
		}
		logger.Info("migrations applied", zap.String("db_driver", cfg.DBDriver))
		return nil
	},
}
