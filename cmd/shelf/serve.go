package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/sagarc03/shelf"
	"github.com/sagarc03/shelf/config"
	"github.com/sagarc03/shelf/database"
	shelfhttp "github.com/sagarc03/shelf/http"
	"github.com/sagarc03/shelf/token"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the shelf HTTP server.

The server connects to the configured backend, waiting up to
server.startup_timeout for it to answer, optionally creates the items
table, and then serves the item API until SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (default: 5708, env: SHELF_SERVER_PORT)")
	serveCmd.Flags().String("auth-mode", "", "token verification: none, cognito, hmac (env: SHELF_AUTH_MODE)")
	serveCmd.Flags().Bool("auto-migrate", false, "create missing tables on startup (env: SHELF_SERVER_AUTO_MIGRATE)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, database.OpenOptions{
		Migrate:     cfg.Server.AutoMigrate,
		PingTimeout: cfg.Server.StartupTimeout,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	slog.Info("connected to database", "type", cfg.Database.Type, "migrated", cfg.Server.AutoMigrate)

	service, err := shelf.NewItemService(db.GetRepo(), shelf.ServiceConfig{})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	verifier, err := token.New(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("create token verifier: %w", err)
	}
	if verifier == nil {
		slog.Warn("authentication disabled, all items belong to the anonymous user")
	}

	handlerConfig := shelfhttp.HandlerConfig{
		Verifier:     verifier,
		CORS:         cfg.CORS,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		handlerConfig.Metrics = shelfhttp.NewMetrics(reg)
	}

	handler := shelfhttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "auth", cfg.Auth.Mode, "metrics", cfg.Metrics.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
