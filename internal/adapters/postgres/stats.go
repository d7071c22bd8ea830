// SPDX-License-Identifier: AGPL-3.0-or-later

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/btouchard/blackbox/internal/app/ports"
)

// StatsReader implements ports.StatsReader for PostgreSQL.
type StatsReader struct {
	db *sql.DB
}

// NewStatsReader creates a new StatsReader.
func NewStatsReader(db *sql.DB) *StatsReader {
	return &StatsReader{db: db}
}

// GetStats returns aggregated collector statistics.
func (r *StatsReader) GetStats(ctx context.Context) (ports.Stats, error) {
	var stats ports.Stats

	query := `
		SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM heartbeats),
			(SELECT COUNT(*) FROM crashes)
	`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Sessions, &stats.Heartbeats, &stats.Crashes); err != nil {
		return ports.Stats{}, fmt.Errorf("get stats: %w", err)
	}

	var lastCrash sql.NullTime
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(received_at) FROM crashes`).Scan(&lastCrash); err != nil {
		return ports.Stats{}, fmt.Errorf("get last crash time: %w", err)
	}
	if lastCrash.Valid {
		stats.LastCrashAt = lastCrash.Time
	}

	return stats, nil
}
