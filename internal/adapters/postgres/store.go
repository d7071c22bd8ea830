// SPDX-License-Identifier: AGPL-3.0-or-later

// Package postgres provides PostgreSQL implementations of the repository
// interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Store holds the database connection and provides access to repositories.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store with a database connection.
func NewStore(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for advanced use cases.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the collector schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id    UUID PRIMARY KEY,
			first_seen_at TIMESTAMPTZ NOT NULL,
			last_seen_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS heartbeats (
			id          BIGSERIAL PRIMARY KEY,
			session_id  UUID NOT NULL,
			captured_at TIMESTAMPTZ NOT NULL,
			received_at TIMESTAMPTZ NOT NULL,
			state       JSONB NOT NULL DEFAULT '{}',
			system      JSONB NOT NULL DEFAULT '{}',
			ram_usage   DOUBLE PRECISION NOT NULL DEFAULT -1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_heartbeats_session ON heartbeats (session_id, captured_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_heartbeats_captured ON heartbeats (captured_at)`,
		`CREATE TABLE IF NOT EXISTS crashes (
			id          BIGSERIAL PRIMARY KEY,
			session_id  UUID NOT NULL,
			error       TEXT NOT NULL,
			traceback   TEXT NOT NULL DEFAULT '',
			os          TEXT NOT NULL DEFAULT '',
			last_state  JSONB NOT NULL DEFAULT '{}',
			received_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_crashes_received ON crashes (received_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// HeartbeatRepository returns a HeartbeatRepository backed by this store.
func (s *Store) HeartbeatRepository() *HeartbeatRepository {
	return NewHeartbeatRepository(s.db)
}

// CrashRepository returns a CrashRepository backed by this store.
func (s *Store) CrashRepository() *CrashRepository {
	return NewCrashRepository(s.db)
}

// StatsReader returns a StatsReader backed by this store.
func (s *Store) StatsReader() *StatsReader {
	return NewStatsReader(s.db)
}
