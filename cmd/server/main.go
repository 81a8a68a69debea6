package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/hwlog/internal/config"
	"github.com/JonMunkholm/hwlog/internal/core"
	"github.com/JonMunkholm/hwlog/internal/logging"
	"github.com/JonMunkholm/hwlog/internal/settings"
	"github.com/JonMunkholm/hwlog/internal/store"
	"github.com/JonMunkholm/hwlog/internal/summary"
	"github.com/JonMunkholm/hwlog/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_max_conns", cfg.Store.MaxConns,
		"auth_required", cfg.Auth.Required,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"refresh_interval", cfg.Store.RefreshInterval,
	)

	ctx := context.Background()

	sets, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		slog.Error("failed to open settings", "path", cfg.Settings.Path, "error", err)
		os.Exit(1)
	}
	defer sets.Close()

	conn, err := sets.Resolve(ctx, cfg.Store.URL, cfg.Store.Key)
	if err != nil {
		slog.Error("failed to resolve store settings", "error", err)
		os.Exit(1)
	}

	open := func(ctx context.Context, conn settings.Connection) (store.Store, error) {
		return store.Open(ctx, cfg.Store.Options(conn.URL, conn.Key))
	}

	st, err := open(ctx, conn)
	if err != nil {
		slog.Error("failed to open store", "source", conn.Source, "error", err)
		os.Exit(1)
	}

	service := core.NewService(st, core.Options{
		RecordsTable: cfg.Store.Table,
		AuditTable:   cfg.Store.AuditTable,
		OpTimeout:    cfg.Store.OpTimeout,
		Dates:        summary.NewDateFormatter(cfg.Display.Locale),
	})
	defer service.Close()

	// A missing table is shown as a banner; the server still starts so the
	// operator can copy the setup script.
	if err := service.FetchAll(ctx); err != nil {
		if core.IsKind(err, core.KindMissingTable) {
			slog.Warn("records table missing", "table", cfg.Store.Table)
		} else {
			slog.Error("initial load failed", "error", err)
		}
	}
	slog.Info("store ready",
		"store", service.StoreKind(),
		"source", conn.Source,
		"records", len(service.History()),
		"locale", service.Locale(),
	)

	server, err := web.NewServer(cfg, service, sets, open)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartRefreshScheduler(jobCtx, cfg.Store.RefreshInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
