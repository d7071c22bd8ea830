// SPDX-License-Identifier: AGPL-3.0-or-later

package domain

import (
	"fmt"
	"regexp"
)

// SessionID identifies one process run of an instrumented host. Agents
// generate it as a UUID at startup and stamp it on every payload.
type SessionID string

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// NewSessionID creates and validates a SessionID.
func NewSessionID(id string) (SessionID, error) {
	if id == "" {
		return "", ErrInvalidSessionID
	}
	if !uuidRegex.MatchString(id) {
		return "", fmt.Errorf("%w: invalid UUID format", ErrInvalidSessionID)
	}
	return SessionID(id), nil
}

// String returns the string representation.
func (id SessionID) String() string {
	return string(id)
}
