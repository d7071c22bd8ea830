// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/btouchard/blackbox/internal/app/ports"
)

// RetentionService removes telemetry older than the configured window.
// Heartbeats and crash reports share the same window so the collector's
// storage stays bounded.
type RetentionService struct {
	heartbeats ports.HeartbeatRepository
	crashes    ports.CrashRepository
	window     time.Duration
	logger     *slog.Logger
}

// NewRetentionService creates a new RetentionService.
func NewRetentionService(heartbeats ports.HeartbeatRepository, crashes ports.CrashRepository, window time.Duration, logger *slog.Logger) *RetentionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionService{
		heartbeats: heartbeats,
		crashes:    crashes,
		window:     window,
		logger:     logger,
	}
}

// Prune deletes everything older than the retention window.
func (s *RetentionService) Prune(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.window)

	heartbeatsRemoved, err := s.heartbeats.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune heartbeats: %w", err)
	}

	crashesRemoved, err := s.crashes.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune crash reports: %w", err)
	}

	if heartbeatsRemoved > 0 || crashesRemoved > 0 {
		s.logger.Info("retention prune completed",
			"cutoff", cutoff,
			"heartbeats_removed", heartbeatsRemoved,
			"crashes_removed", crashesRemoved,
		)
	}
	return nil
}
