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

// HeartbeatRepository implements ports.HeartbeatRepository for PostgreSQL.
type HeartbeatRepository struct {
	db *sql.DB
}

// NewHeartbeatRepository creates a new HeartbeatRepository.
func NewHeartbeatRepository(db *sql.DB) *HeartbeatRepository {
	return &HeartbeatRepository{db: db}
}

// Save persists a heartbeat and refreshes the session's last_seen_at.
func (r *HeartbeatRepository) Save(ctx context.Context, heartbeat *domain.Heartbeat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stateJSON, err := json.Marshal(heartbeat.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	systemJSON, err := json.Marshal(heartbeat.System)
	if err != nil {
		return fmt.Errorf("marshal system: %w", err)
	}

	insertQuery := `INSERT INTO heartbeats (session_id, captured_at, received_at, state, system, ram_usage)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = tx.ExecContext(ctx, insertQuery,
		heartbeat.SessionID.String(),
		heartbeat.CapturedAt,
		heartbeat.ReceivedAt,
		stateJSON,
		systemJSON,
		heartbeat.RAMUsage,
	)
	if err != nil {
		return fmt.Errorf("insert heartbeat: %w", err)
	}

	err = touchSession(ctx, tx, heartbeat.SessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// FindBySession retrieves the most recent heartbeats for a session.
func (r *HeartbeatRepository) FindBySession(ctx context.Context, id domain.SessionID, limit int) ([]*domain.Heartbeat, error) {
	query := `
		SELECT id, session_id, captured_at, received_at, state, system, ram_usage
		FROM heartbeats
		WHERE session_id = $1
		ORDER BY captured_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, id.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("find heartbeats for %s: %w", id, err)
	}
	defer rows.Close()

	var heartbeats []*domain.Heartbeat
	for rows.Next() {
		hb, err := scanHeartbeat(rows)
		if err != nil {
			return nil, err
		}
		heartbeats = append(heartbeats, hb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heartbeats: %w", err)
	}
	return heartbeats, nil
}

// DeleteOlderThan removes heartbeats captured before cutoff.
func (r *HeartbeatRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM heartbeats WHERE captured_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old heartbeats: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count removed heartbeats: %w", err)
	}
	return removed, nil
}

func scanHeartbeat(rows *sql.Rows) (*domain.Heartbeat, error) {
	var hb domain.Heartbeat
	var sessionID string
	var rawState, rawSystem []byte

	if err := rows.Scan(&hb.ID, &sessionID, &hb.CapturedAt, &hb.ReceivedAt, &rawState, &rawSystem, &hb.RAMUsage); err != nil {
		return nil, fmt.Errorf("scan heartbeat: %w", err)
	}

	hb.SessionID = domain.SessionID(sessionID)
	if err := json.Unmarshal(rawState, &hb.State); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	if err := json.Unmarshal(rawSystem, &hb.System); err != nil {
		return nil, fmt.Errorf("unmarshal system: %w", err)
	}
	return &hb, nil
}

// touchSession upserts the session row so the admin surface can tell which
// agents are alive.
func touchSession(ctx context.Context, tx *sql.Tx, id domain.SessionID) error {
	query := `INSERT INTO sessions (session_id, first_seen_at, last_seen_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (session_id) DO UPDATE SET last_seen_at = NOW()`
	_, err := tx.ExecContext(ctx, query, id.String())
	return err
}
