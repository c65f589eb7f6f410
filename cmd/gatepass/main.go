// Command gatepass runs the gate pass service and its maintenance tasks.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/diewo77/gatepass/internal/config"
	"github.com/diewo77/gatepass/internal/db"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "gatepass <command>",
	Short:         "Gate pass issuing and verification service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load environment variables from .env file
		_ = godotenv.Load()
		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = newLogger(cfg.App.Dev)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, sessionTokenCmd)
}

func newLogger(dev bool) *slog.Logger {
	if dev {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}

// openDB connects and brings the schema up to date.
func openDB() (*gorm.DB, error) {
	conn, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn, cfg.App.Migrations); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

func loadRoles() ([]db.RoleSpec, error) {
	if cfg.App.RolesFile == "" {
		return nil, nil
	}
	return db.LoadRoles(cfg.App.RolesFile)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
