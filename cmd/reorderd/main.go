package main

import (
	"fmt"
	"os"

	"post-reorder-backend/pkg/config"
	"post-reorder-backend/pkg/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	debug bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "reorderd",
	Short: "Drag-and-drop ordering for posts",
	Long: `reorderd serves the admin reorder pages and the post_sort endpoint that
stores the resulting menu_order values.

Configuration comes from config.yaml, .env.local/.env.production and the
environment (DB_DRIVER, POSTGRES_DSN, SQLITE_PATH, REDIS_ADDR, JWT_SECRET, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.LoadConfig()
		if debug {
			cfg.Debug = true
		}
		var err error
		logger, err = logging.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(editCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
