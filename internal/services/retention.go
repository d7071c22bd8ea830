// SPDX-License-Identifier: AGPL-3.0-or-later

// Package services holds background periodic tasks for the collector.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/btouchard/blackbox/internal/app"
)

// pruneInterval is how often old telemetry is swept out.
const pruneInterval = 1 * time.Hour

// Scheduler runs the collector's background tasks.
type Scheduler struct {
	retention *app.RetentionService
	logger    *slog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(retention *app.RetentionService, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		retention: retention,
		logger:    logger,
	}
}

// Start begins running scheduled tasks in the background.
// This function blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "prune_interval", pruneInterval.String())

	// Initial sweep on startup (after a small delay)
	timer := time.AfterFunc(30*time.Second, func() {
		s.prune(ctx)
	})
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

func (s *Scheduler) prune(ctx context.Context) {
	s.logger.Debug("starting retention prune")

	if err := s.retention.Prune(ctx); err != nil {
		s.logger.Error("retention prune failed", "error", err)
	} else {
		s.logger.Debug("retention prune completed")
	}
}
