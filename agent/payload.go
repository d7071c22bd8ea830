// SPDX-License-Identifier: MIT

package agent

// Wire payload shapes. Field names are part of the collector contract and
// must not change.

// HeartbeatPayload is the periodic telemetry payload.
type HeartbeatPayload struct {
	Type      string         `json:"type"`
	Session   string         `json:"session"`
	State     map[string]any `json:"state"`
	System    map[string]any `json:"system"`
	RAMUsage  float64        `json:"ram_usage"`
	Timestamp int64          `json:"timestamp"` // epoch seconds
}

// CrashPayload is the black box report sent when an unhandled panic takes
// the process down.
type CrashPayload struct {
	Type      string         `json:"type"`
	Session   string         `json:"session"`
	Error     string         `json:"error"`
	Traceback string         `json:"traceback"`
	OS        string         `json:"os"`
	LastState map[string]any `json:"last_state"`
}
