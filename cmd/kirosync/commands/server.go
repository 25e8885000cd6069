package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jongik-sv/kirosync/internal/auth"
	"github.com/jongik-sv/kirosync/internal/config"
	"github.com/jongik-sv/kirosync/internal/logger"
	"github.com/jongik-sv/kirosync/internal/store"
	"github.com/jongik-sv/kirosync/internal/transport"
)

// ServerCmd starts the KiroSync collaboration server.
var ServerCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"serve"},
	Short:   "Start the KiroSync real-time diagram collaboration server",
	Long:    `Launch the WebSocket hub and REST API that back live BPMN diagram collaboration: authentication, diagram persistence, and multi-user presence/cursor broadcast.`,
	RunE:    runServer,
}

var serverDBPath string

func init() {
	ServerCmd.Flags().StringVar(&serverDBPath, "db-path", "", "Custom database path (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := logger.Initialize(false); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbPath := serverDBPath
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}

	db, err := store.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	users := store.NewUserStore(db)
	diagrams := store.NewDiagramStore(db)
	sessions := store.NewSessionStore(db)

	tokenExpiry, err := time.ParseDuration(cfg.Auth.TokenExpiry)
	if err != nil {
		tokenExpiry = 15 * time.Minute
	}
	refreshExpiry, err := time.ParseDuration(cfg.Auth.RefreshExpiry)
	if err != nil {
		refreshExpiry = 720 * time.Hour
	}
	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, tokenExpiry, refreshExpiry)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT manager: %w", err)
	}

	srv := transport.New(cfg, logger.Logger, users, diagrams, sessions, jwtManager)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	if cfg.Server.Port == 0 {
		addr = fmt.Sprintf(":%d", config.DefaultServerPort)
	}

	printStartupBanner(addr, dbPath)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run(addr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-sigChan:
		logger.Logger.Infow("shutting down gracefully", "timeout", "10s")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		shutdownDone := make(chan error, 1)
		go func() { shutdownDone <- srv.Shutdown(ctx) }()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			logger.Logger.Info("server stopped cleanly")
			return nil
		case <-sigChan:
			logger.Logger.Warn("force shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}
