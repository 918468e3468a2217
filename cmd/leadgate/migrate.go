package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadgate-systems/leadgate/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Storage.Backend != "postgres" {
			return fmt.Errorf("migrations require the postgres backend, configured backend is %q", cfg.Storage.Backend)
		}
		return runMigrations(cfg.Storage.MigrationsDir, cfg.Storage.DatabaseURL)
	},
}
