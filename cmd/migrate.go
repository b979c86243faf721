package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voyago/voyago/db"
	"github.com/voyago/voyago/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(*cobra.Command, []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger := newLogger()
		if err := db.Migrate(cfg.ConnString(), logger); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		logger.Info("database is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
