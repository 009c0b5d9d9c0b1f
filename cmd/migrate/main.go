// Command migrate applies the postgres schema for the postgres slot driver.
//
//	migrate [up|down|drop|version]
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/staffdir/internal/config"
	"github.com/JonMunkholm/staffdir/internal/logging"
	"github.com/JonMunkholm/staffdir/internal/migrations"
)

func main() {
	_ = godotenv.Overload()

	if err := newCmd().Execute(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:          "migrate [up|down|drop|version]",
		Short:        "Run postgres schema migrations",
		Args:         cobra.MaximumNArgs(1),
		ValidArgs:    []string{migrations.ActionUp, migrations.ActionDown, migrations.ActionDrop, migrations.ActionVersion},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			action := migrations.ActionUp
			if len(args) > 0 {
				action = args[0]
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

			url := cfg.Storage.DatabaseURL
			if databaseURL != "" {
				url = databaseURL
			}
			if url == "" {
				return errors.New("DATABASE_URL is required")
			}

			m, err := migrations.New(url)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := migrations.Run(m, action); err != nil {
				return fmt.Errorf("migration %s: %w", action, err)
			}
			slog.Info("migration completed", "action", action)
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres url (default DATABASE_URL)")
	return cmd
}
