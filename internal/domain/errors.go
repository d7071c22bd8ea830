// SPDX-License-Identifier: AGPL-3.0-or-later

package domain

import "errors"

// Sentinel errors for the domain layer.
// Use errors.Is() to check for these errors.
// Wrap with fmt.Errorf("context: %w", ErrXxx) to add context.

var (
	// Session errors
	ErrInvalidSessionID = errors.New("invalid session ID")

	// Report errors
	ErrInvalidHeartbeat   = errors.New("invalid heartbeat")
	ErrInvalidCrashReport = errors.New("invalid crash report")
	ErrInvalidState       = errors.New("invalid state")
)
