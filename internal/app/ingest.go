// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app holds the collector's use cases, wired to the persistence
// ports.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/btouchard/blackbox/internal/app/ports"
	"github.com/btouchard/blackbox/internal/domain"
)

// IngestHeartbeatInput holds the data needed to record a heartbeat.
type IngestHeartbeatInput struct {
	SessionID string
	Timestamp int64 // epoch seconds, as reported by the agent
	State     json.RawMessage
	System    json.RawMessage
	RAMUsage  float64
}

// IngestCrashInput holds the data needed to record a crash report.
type IngestCrashInput struct {
	SessionID string
	Error     string
	Traceback string
	OS        string
	LastState json.RawMessage
}

// IngestService validates and persists incoming telemetry payloads.
type IngestService struct {
	heartbeats ports.HeartbeatRepository
	crashes    ports.CrashRepository
	logger     *slog.Logger
}

// NewIngestService creates a new IngestService.
func NewIngestService(heartbeats ports.HeartbeatRepository, crashes ports.CrashRepository, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		heartbeats: heartbeats,
		crashes:    crashes,
		logger:     logger,
	}
}

// SaveHeartbeat validates and persists one heartbeat.
func (s *IngestService) SaveHeartbeat(ctx context.Context, input IngestHeartbeatInput) error {
	heartbeat, err := domain.NewHeartbeat(
		input.SessionID,
		time.Unix(input.Timestamp, 0),
		input.State,
		input.System,
		input.RAMUsage,
	)
	if err != nil {
		return fmt.Errorf("save heartbeat: %w", err)
	}

	if err := s.heartbeats.Save(ctx, heartbeat); err != nil {
		return fmt.Errorf("save heartbeat: %w", err)
	}

	s.logger.Debug("heartbeat recorded",
		"session", heartbeat.SessionID,
		"captured_at", heartbeat.CapturedAt,
	)
	return nil
}

// SaveCrash validates and persists one crash report.
func (s *IngestService) SaveCrash(ctx context.Context, input IngestCrashInput) error {
	report, err := domain.NewCrashReport(
		input.SessionID,
		input.Error,
		input.Traceback,
		input.OS,
		input.LastState,
	)
	if err != nil {
		return fmt.Errorf("save crash report: %w", err)
	}

	if err := s.crashes.Save(ctx, report); err != nil {
		return fmt.Errorf("save crash report: %w", err)
	}

	s.logger.Warn("crash report recorded",
		"session", report.SessionID,
		"error", report.Error,
	)
	return nil
}
