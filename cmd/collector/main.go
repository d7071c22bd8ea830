// SPDX-License-Identifier: AGPL-3.0-or-later

// Command collector runs the self-hosted telemetry collector: it ingests
// heartbeats and crash reports from embedded agents, stores them in
// PostgreSQL and serves a small admin API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	blackboxhttp "github.com/btouchard/blackbox/internal/adapters/http"
	"github.com/btouchard/blackbox/internal/adapters/postgres"
	"github.com/btouchard/blackbox/internal/app"
	"github.com/btouchard/blackbox/internal/config"
	"github.com/btouchard/blackbox/internal/middleware"
	"github.com/btouchard/blackbox/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("connecting to PostgreSQL...")
	store, err := postgres.NewStore(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to PostgreSQL")

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, logger)
	defer rateLimiter.Stop()

	mux := blackboxhttp.NewRouter(blackboxhttp.RouterConfig{
		Store:       store,
		RateLimiter: rateLimiter,
		AdminAPIKey: cfg.AdminAPIKey,
		Logger:      logger,
	})

	retention := app.NewRetentionService(
		store.HeartbeatRepository(),
		store.CrashRepository(),
		cfg.Retention.Std(),
		logger,
	)
	scheduler := services.NewScheduler(retention, logger)
	go scheduler.Start(ctx)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("collector started",
			"addr", cfg.ListenAddr,
			"retention", cfg.Retention.Std().String(),
			"rate_limit_enabled", cfg.RateLimit.Enabled,
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("collector stopped")
}
