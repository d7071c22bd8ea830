// SPDX-License-Identifier: AGPL-3.0-or-later

package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/btouchard/blackbox/internal/domain"
)

func TestCrashRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("saves crash report with transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		repo := NewCrashRepository(db)
		cr, _ := domain.NewCrashReport(testSessionID, "boom", "goroutine 1...", "linux/amd64", json.RawMessage(`{"level":3}`))

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO crashes").
			WithArgs(testSessionID, "boom", "goroutine 1...", "linux/amd64", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(testSessionID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = repo.Save(ctx, cr)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("rolls back on insert error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		repo := NewCrashRepository(db)
		cr, _ := domain.NewCrashReport(testSessionID, "boom", "", "linux", nil)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO crashes").
			WillReturnError(sqlmock.ErrCancelled)
		mock.ExpectRollback()

		err = repo.Save(ctx, cr)
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestCrashRepository_ListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewCrashRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "session_id", "error", "traceback", "os", "last_state", "received_at"}).
		AddRow(int64(1), testSessionID, "boom", "goroutine 1...", "linux/amd64", []byte(`{"password":"***REDACTED***"}`), now)

	mock.ExpectQuery("SELECT id, session_id, error, traceback, os, last_state, received_at").
		WithArgs(50).
		WillReturnRows(rows)

	reports, err := repo.ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	if reports[0].Error != "boom" {
		t.Errorf("error = %q, want boom", reports[0].Error)
	}
	if v, _ := reports[0].LastState.GetString("password"); v != "***REDACTED***" {
		t.Errorf("last_state password = %q", v)
	}
}

func TestCrashRepository_DeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewCrashRepository(db)
	cutoff := time.Now().UTC().Add(-72 * time.Hour)

	mock.ExpectExec("DELETE FROM crashes").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	removed, err := repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
}
