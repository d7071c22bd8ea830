// SPDX-License-Identifier: MIT

package agent

import "sync"

// StateStore holds the host's last known application state. The host may
// update it from any goroutine at any time; consumers always get an
// independent deep copy, so a payload under construction can never observe a
// torn write or a later mutation. The store itself never interprets values.
type StateStore struct {
	mu    sync.RWMutex
	state map[string]any
}

// NewStateStore creates an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{state: make(map[string]any)}
}

// Update merges the given keys into the current state. Existing keys are
// overwritten; other keys are left untouched.
func (s *StateStore) Update(partial map[string]any) {
	if len(partial) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range partial {
		s.state[k] = v
	}
}

// Snapshot returns a deep copy of the current state.
func (s *StateStore) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.state, 0, false)
}

// Len returns the number of top-level keys currently set.
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state)
}
