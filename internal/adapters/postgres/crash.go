// SPDX-License-Identifier: AGPL-3.0-or-later

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/btouchard/blackbox/internal/domain"
)

// CrashRepository implements ports.CrashRepository for PostgreSQL.
type CrashRepository struct {
	db *sql.DB
}

// NewCrashRepository creates a new CrashRepository.
func NewCrashRepository(db *sql.DB) *CrashRepository {
	return &CrashRepository{db: db}
}

// Save persists a crash report and refreshes the session's last_seen_at.
func (r *CrashRepository) Save(ctx context.Context, report *domain.CrashReport) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stateJSON, err := json.Marshal(report.LastState)
	if err != nil {
		return fmt.Errorf("marshal last state: %w", err)
	}

	insertQuery := `INSERT INTO crashes (session_id, error, traceback, os, last_state, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = tx.ExecContext(ctx, insertQuery,
		report.SessionID.String(),
		report.Error,
		report.Traceback,
		report.OS,
		stateJSON,
		report.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert crash report: %w", err)
	}

	err = touchSession(ctx, tx, report.SessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListRecent retrieves the most recently received crash reports.
func (r *CrashRepository) ListRecent(ctx context.Context, limit int) ([]*domain.CrashReport, error) {
	query := `
		SELECT id, session_id, error, traceback, os, last_state, received_at
		FROM crashes
		ORDER BY received_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list crash reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.CrashReport
	for rows.Next() {
		var cr domain.CrashReport
		var sessionID string
		var rawState []byte

		if err := rows.Scan(&cr.ID, &sessionID, &cr.Error, &cr.Traceback, &cr.OS, &rawState, &cr.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan crash report: %w", err)
		}
		cr.SessionID = domain.SessionID(sessionID)
		if err := json.Unmarshal(rawState, &cr.LastState); err != nil {
			return nil, fmt.Errorf("unmarshal last state: %w", err)
		}
		reports = append(reports, &cr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crash reports: %w", err)
	}
	return reports, nil
}

// DeleteOlderThan removes crash reports received before cutoff.
func (r *CrashRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM crashes WHERE received_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old crash reports: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count removed crash reports: %w", err)
	}
	return removed, nil
}
