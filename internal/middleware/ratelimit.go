// SPDX-License-Identifier: AGPL-3.0-or-later

// Package middleware provides HTTP middleware shared by the collector's
// route classes.
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/btouchard/blackbox/internal/config"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // Unix nano timestamp for thread-safe access
}

// RateLimiter applies per-client token buckets to the ingest and admin
// route classes. Clients are keyed by remote IP; agents carry no identity
// beyond their session, and the session lives in the body.
type RateLimiter struct {
	cfg    config.RateLimitConfig
	logger *slog.Logger

	ingestLimiters sync.Map // IP -> *limiterEntry
	adminLimiters  sync.Map // IP -> *limiterEntry

	stopCleanup chan struct{}
}

// NewRateLimiter creates a RateLimiter and starts its cleanup loop when
// enabled.
func NewRateLimiter(cfg config.RateLimitConfig, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	rl := &RateLimiter{
		cfg:         cfg,
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}

	if cfg.Enabled && cfg.CleanupInterval.Std() > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// Stop terminates the cleanup loop.
func (rl *RateLimiter) Stop() {
	close(rl.stopCleanup)
}

// IngestMiddleware limits the heartbeat and crash ingest routes.
func (rl *RateLimiter) IngestMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return rl.limit(&rl.ingestLimiters, rl.cfg.Ingest, next)
}

// AdminMiddleware limits the admin read routes.
func (rl *RateLimiter) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return rl.limit(&rl.adminLimiters, rl.cfg.Admin, next)
}

func (rl *RateLimiter) limit(store *sync.Map, cfg config.RouteLimit, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled {
			next(w, r)
			return
		}

		ip := clientIP(r)
		limiter := rl.getLimiter(store, ip, cfg)
		if !limiter.Allow() {
			rl.logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (rl *RateLimiter) getLimiter(store *sync.Map, key string, cfg config.RouteLimit) *rate.Limiter {
	nowNano := time.Now().UnixNano()

	if existing, ok := store.Load(key); ok {
		entry := existing.(*limiterEntry)
		entry.lastSeen.Store(nowNano)
		return entry.limiter
	}

	limit := rate.Limit(float64(cfg.Requests) / cfg.Period.Std().Seconds())
	entry := &limiterEntry{limiter: rate.NewLimiter(limit, cfg.Burst)}
	entry.lastSeen.Store(nowNano)

	actual, _ := store.LoadOrStore(key, entry)
	return actual.(*limiterEntry).limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	threshold := time.Now().Add(-rl.cfg.CleanupInterval.Std() * 2).UnixNano()

	cleanupMap := func(m *sync.Map) int {
		count := 0
		m.Range(func(key, value any) bool {
			if entry, ok := value.(*limiterEntry); ok {
				if entry.lastSeen.Load() < threshold {
					m.Delete(key)
					count++
				}
			}
			return true
		})
		return count
	}

	ingestCount := cleanupMap(&rl.ingestLimiters)
	adminCount := cleanupMap(&rl.adminLimiters)
	if total := ingestCount + adminCount; total > 0 {
		rl.logger.Debug("rate limiter cleanup",
			"removed", total,
			"ingest", ingestCount,
			"admin", adminCount,
		)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
