// SPDX-License-Identifier: AGPL-3.0-or-later

// Package domain holds the collector's entities: schema-agnostic telemetry
// reports keyed by the agent session that produced them.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// clockSkewTolerance is how far into the future a reported timestamp may sit
// before it is rejected.
const clockSkewTolerance = 5 * time.Minute

// State is the schema-agnostic application state carried by a payload.
// Stored as JSON; the collector never interprets individual values.
type State map[string]any

// NewState creates State from raw JSON bytes. Empty input yields an empty
// (not nil) state.
func NewState(raw json.RawMessage) (State, error) {
	if len(raw) == 0 {
		return make(State), nil
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return s, nil
}

// Raw returns the JSON representation of the state.
func (s State) Raw() (json.RawMessage, error) {
	return json.Marshal(s)
}

// GetString retrieves a string value from the state.
func (s State) GetString(key string) (string, bool) {
	v, ok := s[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Heartbeat is a periodic point-in-time capture from a running agent.
type Heartbeat struct {
	ID         int64
	SessionID  SessionID
	State      State
	System     State
	RAMUsage   float64
	CapturedAt time.Time
	ReceivedAt time.Time
}

// NewHeartbeat creates a Heartbeat with validation. capturedAt is the epoch
// timestamp reported by the agent.
func NewHeartbeat(sessionID string, capturedAt time.Time, state, system json.RawMessage, ramUsage float64) (*Heartbeat, error) {
	id, err := NewSessionID(sessionID)
	if err != nil {
		return nil, err
	}

	if capturedAt.IsZero() {
		return nil, fmt.Errorf("%w: timestamp is required", ErrInvalidHeartbeat)
	}
	capturedAt = capturedAt.UTC()
	if capturedAt.After(time.Now().UTC().Add(clockSkewTolerance)) {
		return nil, fmt.Errorf("%w: timestamp is in the future", ErrInvalidHeartbeat)
	}

	st, err := NewState(state)
	if err != nil {
		return nil, fmt.Errorf("%w: state: %v", ErrInvalidHeartbeat, err)
	}
	sys, err := NewState(system)
	if err != nil {
		return nil, fmt.Errorf("%w: system: %v", ErrInvalidHeartbeat, err)
	}

	return &Heartbeat{
		SessionID:  id,
		State:      st,
		System:     sys,
		RAMUsage:   ramUsage,
		CapturedAt: capturedAt,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// Age returns how old the heartbeat capture is.
func (h *Heartbeat) Age() time.Duration {
	return time.Since(h.CapturedAt)
}

// CrashReport is the black box captured when an unhandled fatal error took
// an agent's process down.
type CrashReport struct {
	ID         int64
	SessionID  SessionID
	Error      string
	Traceback  string
	OS         string
	LastState  State
	ReceivedAt time.Time
}

// NewCrashReport creates a CrashReport with validation.
func NewCrashReport(sessionID, errorMessage, traceback, osInfo string, lastState json.RawMessage) (*CrashReport, error) {
	id, err := NewSessionID(sessionID)
	if err != nil {
		return nil, err
	}

	if errorMessage == "" {
		return nil, fmt.Errorf("%w: error message is required", ErrInvalidCrashReport)
	}

	st, err := NewState(lastState)
	if err != nil {
		return nil, fmt.Errorf("%w: last_state: %v", ErrInvalidCrashReport, err)
	}

	return &CrashReport{
		SessionID:  id,
		Error:      errorMessage,
		Traceback:  traceback,
		OS:         osInfo,
		LastState:  st,
		ReceivedAt: time.Now().UTC(),
	}, nil
}
