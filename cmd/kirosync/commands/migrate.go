package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jongik-sv/kirosync/internal/config"
	"github.com/jongik-sv/kirosync/internal/logger"
	"github.com/jongik-sv/kirosync/internal/store"
)

// MigrateCmd applies any pending database migrations and exits.
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  `Open the configured SQLite database and apply every migration that hasn't already run, then exit.`,
	RunE:  runMigrate,
}

var migrateDBPath string

func init() {
	MigrateCmd.Flags().StringVar(&migrateDBPath, "db-path", "", "Custom database path (overrides config)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := logger.Initialize(false); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbPath := migrateDBPath
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}

	db, err := store.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	defer db.Close()

	fmt.Printf("database at %s is up to date\n", dbPath)
	return nil
}
