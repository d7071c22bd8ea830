// SPDX-License-Identifier: MIT

package agent

import "errors"

// Sentinel errors for the agent.
// Use errors.Is() to check for these errors.

var (
	// ErrInvalidMode is returned when a configured mode is not one of
	// activity, minimal or errors_only.
	ErrInvalidMode = errors.New("invalid telemetry mode")

	// ErrHookInstalled is returned by Setup when the crash hook of this
	// agent is already active.
	ErrHookInstalled = errors.New("crash hook already installed")

	// ErrEndpointRejected is returned by the HTTP sender on a non-2xx
	// response.
	ErrEndpointRejected = errors.New("endpoint rejected payload")
)
