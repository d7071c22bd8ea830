// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"fmt"

	"github.com/btouchard/blackbox/internal/app/ports"
	"github.com/btouchard/blackbox/internal/domain"
)

const defaultCrashListLimit = 50

// StatsService serves the admin read surface.
type StatsService struct {
	reader  ports.StatsReader
	crashes ports.CrashRepository
}

// NewStatsService creates a new StatsService.
func NewStatsService(reader ports.StatsReader, crashes ports.CrashRepository) *StatsService {
	return &StatsService{
		reader:  reader,
		crashes: crashes,
	}
}

// Stats returns aggregated collector statistics.
func (s *StatsService) Stats(ctx context.Context) (ports.Stats, error) {
	stats, err := s.reader.GetStats(ctx)
	if err != nil {
		return ports.Stats{}, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// RecentCrashes returns the most recently received crash reports.
func (s *StatsService) RecentCrashes(ctx context.Context, limit int) ([]*domain.CrashReport, error) {
	if limit <= 0 {
		limit = defaultCrashListLimit
	}
	reports, err := s.crashes.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent crashes: %w", err)
	}
	return reports, nil
}
