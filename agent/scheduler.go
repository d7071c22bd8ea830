// SPDX-License-Identifier: MIT

package agent

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

type schedulerPhase int32

const (
	schedulerIdle schedulerPhase = iota
	schedulerRunning
	schedulerStopped
)

// scheduler runs the heartbeat loop on a background goroutine. It is never
// constructed in errors_only mode.
type scheduler struct {
	interval time.Duration
	session  string
	url      string
	state    *StateStore
	sender   Sender
	logger   *slog.Logger

	phase    atomic.Int32
	inFlight atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func newScheduler(interval time.Duration, session, url string, state *StateStore, sender Sender, logger *slog.Logger) *scheduler {
	return &scheduler{
		interval: interval,
		session:  session,
		url:      url,
		state:    state,
		sender:   sender,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// start transitions Idle -> Running and begins ticking. Calling start on a
// running or stopped scheduler is a no-op.
func (s *scheduler) start() {
	if !s.phase.CompareAndSwap(int32(schedulerIdle), int32(schedulerRunning)) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

// stop transitions Running -> Stopped and cancels the ticker. In-flight
// sends are cancelled, not awaited; no heartbeat is guaranteed after stop.
func (s *scheduler) stop() {
	if !s.phase.CompareAndSwap(int32(schedulerRunning), int32(schedulerStopped)) {
		return
	}
	s.cancel()
	<-s.done
}

func (s *scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("heartbeat loop started", "interval", s.interval)
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("heartbeat loop stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick composes and ships one heartbeat. If the previous send is still in
// flight the tick is skipped outright; a stale heartbeat carries no value.
func (s *scheduler) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("heartbeat skipped, previous send in flight")
		return
	}

	payload := HeartbeatPayload{
		Type:      "heartbeat",
		Session:   s.session,
		State:     Sanitize(s.state.Snapshot()),
		System:    systemInfo(),
		RAMUsage:  ramUsagePercent(),
		Timestamp: time.Now().Unix(),
	}

	go func() {
		defer s.inFlight.Store(false)
		if err := sendWithRetry(ctx, s.sender, s.url, payload, 1); err != nil {
			s.logger.Debug("heartbeat send failed", "error", err)
		}
	}()
}
