// SPDX-License-Identifier: AGPL-3.0-or-later

package http

import (
	"log/slog"
	"net/http"

	"github.com/btouchard/blackbox/internal/adapters/postgres"
	"github.com/btouchard/blackbox/internal/app"
	"github.com/btouchard/blackbox/internal/middleware"
)

// RouterConfig holds the configuration for creating a new router.
type RouterConfig struct {
	Store       *postgres.Store
	RateLimiter *middleware.RateLimiter // nil disables rate limiting (tests)
	AdminAPIKey string
	Logger      *slog.Logger
}

// NewRouter creates a fully wired HTTP router with all handlers and
// middleware.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	heartbeatRepo := cfg.Store.HeartbeatRepository()
	crashRepo := cfg.Store.CrashRepository()
	statsReader := cfg.Store.StatsReader()

	ingestSvc := app.NewIngestService(heartbeatRepo, crashRepo, logger)
	statsSvc := app.NewStatsService(statsReader, crashRepo)

	handlers := NewHandlers(ingestSvc, statsSvc, logger)
	authMW := NewAuthMiddleware(cfg.AdminAPIKey, logger)

	mux := http.NewServeMux()

	// Health check (no auth, no rate limit)
	mux.HandleFunc("/api/v1/healthcheck", handlers.Healthcheck)

	if rl := cfg.RateLimiter; rl != nil {
		mux.HandleFunc("/v1/heartbeat", rl.IngestMiddleware(handlers.Heartbeat))
		mux.HandleFunc("/v1/crash", rl.IngestMiddleware(handlers.Crash))
		mux.HandleFunc("/api/v1/admin/stats", rl.AdminMiddleware(authMW.RequireAPIKey(handlers.AdminStats)))
		mux.HandleFunc("/api/v1/admin/crashes", rl.AdminMiddleware(authMW.RequireAPIKey(handlers.AdminCrashes)))
	} else {
		mux.HandleFunc("/v1/heartbeat", handlers.Heartbeat)
		mux.HandleFunc("/v1/crash", handlers.Crash)
		mux.HandleFunc("/api/v1/admin/stats", authMW.RequireAPIKey(handlers.AdminStats))
		mux.HandleFunc("/api/v1/admin/crashes", authMW.RequireAPIKey(handlers.AdminCrashes))
	}

	return mux
}
