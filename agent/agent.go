// SPDX-License-Identifier: MIT

// Package agent embeds a flight-recorder telemetry agent in a host
// application. It records periodic heartbeat snapshots of the host's state
// on a background loop and captures a final black box report when an
// unhandled panic takes the process down. Delivery is best effort: sends are
// bounded, failures are logged and dropped, and nothing in this package ever
// propagates a telemetry failure into host code.
package agent

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Agent wires the heartbeat scheduler, the crash recorder and the shared
// state store together and exposes the host-facing lifecycle.
type Agent struct {
	cfg    Config
	logger *slog.Logger
	sender Sender
	state  *StateStore

	mu      sync.Mutex
	session string
	sched   *scheduler
	rec     *recorder
	running bool
}

// Option tweaks agent construction.
type Option func(*Agent)

// WithLogger routes agent diagnostics to l instead of slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithSender replaces the HTTP sender, mainly for tests.
func WithSender(s Sender) Option {
	return func(a *Agent) {
		if s != nil {
			a.sender = s
		}
	}
}

// New creates an Agent from cfg. The configuration is validated and frozen
// here; changing the mode later requires a new agent.
func New(cfg Config, opts ...Option) (*Agent, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:   cfg,
		state: NewStateStore(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.sender == nil {
		a.sender = NewHTTPSender(a.logger)
	}
	return a, nil
}

// Setup generates the session id, installs the crash hook and, unless the
// mode is errors_only, starts the heartbeat loop. A hook install failure is
// the only error surfaced to the host; everything past Setup is silent.
func (a *Agent) Setup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return ErrHookInstalled
	}

	a.session = uuid.New().String()

	a.rec = newRecorder(a.session, a.cfg.CrashURL, a.state, a.sender, a.logger)
	if err := a.rec.install(); err != nil {
		return fmt.Errorf("install crash hook: %w", err)
	}

	if a.cfg.Mode == ModeErrorsOnly {
		a.logger.Info("heartbeat loop disabled", "mode", a.cfg.Mode)
	} else {
		a.sched = newScheduler(a.cfg.Interval, a.session, a.cfg.TelemetryURL, a.state, a.sender, a.logger)
		a.sched.start()
	}

	a.running = true
	a.logger.Info("telemetry agent started",
		"mode", a.cfg.Mode,
		"session", a.session,
		"interval", a.cfg.Interval,
	)
	return nil
}

// Teardown stops the heartbeat loop and restores the previous crash handler.
// In-flight sends are cancelled, not awaited, so Teardown returns in bounded
// time even when the endpoint never answers. Safe to call more than once.
func (a *Agent) Teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	if a.sched != nil {
		a.sched.stop()
		a.sched = nil
	}
	if a.rec != nil {
		a.rec.uninstall()
		a.rec = nil
	}
	a.running = false
	a.logger.Info("telemetry agent stopped", "session", a.session)
}

// UpdateState merges the given keys into the live state snapshot read by
// heartbeats and crash reports. Callable from any goroutine at any time.
func (a *Agent) UpdateState(state map[string]any) {
	a.state.Update(state)
}

// Session returns the identifier stamped on every payload from this agent,
// or the empty string before Setup.
func (a *Agent) Session() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}
