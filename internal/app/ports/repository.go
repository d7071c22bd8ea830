// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ports defines the interfaces (ports) used by the application layer.
// These interfaces are implemented by adapters (repositories, external
// services). Following hexagonal architecture: interfaces are declared where
// they are consumed.
package ports

import (
	"context"
	"time"

	"github.com/btouchard/blackbox/internal/domain"
)

// HeartbeatRepository defines persistence operations for heartbeats.
type HeartbeatRepository interface {
	// Save persists a heartbeat and refreshes the session's last_seen_at.
	Save(ctx context.Context, heartbeat *domain.Heartbeat) error

	// FindBySession retrieves the most recent heartbeats for a session.
	FindBySession(ctx context.Context, id domain.SessionID, limit int) ([]*domain.Heartbeat, error)

	// DeleteOlderThan removes heartbeats captured before cutoff and returns
	// how many rows were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CrashRepository defines persistence operations for crash reports.
type CrashRepository interface {
	// Save persists a crash report and refreshes the session's last_seen_at.
	Save(ctx context.Context, report *domain.CrashReport) error

	// ListRecent retrieves the most recently received crash reports.
	ListRecent(ctx context.Context, limit int) ([]*domain.CrashReport, error)

	// DeleteOlderThan removes crash reports received before cutoff and
	// returns how many rows were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Stats holds aggregated collector statistics.
type Stats struct {
	Sessions    int
	Heartbeats  int
	Crashes     int
	LastCrashAt time.Time // zero when no crash has been received
}

// StatsReader defines read operations for the admin surface.
// Separated from the write repositories for CQRS-lite.
type StatsReader interface {
	// GetStats returns aggregated collector statistics.
	GetStats(ctx context.Context) (Stats, error)
}
