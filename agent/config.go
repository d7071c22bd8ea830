// SPDX-License-Identifier: MIT

package agent

import (
	"fmt"
	"strings"
	"time"
)

// Mode controls how much telemetry the agent produces.
type Mode string

const (
	// ModeActivity sends frequent heartbeats plus crash reports.
	ModeActivity Mode = "activity"
	// ModeMinimal sends infrequent heartbeats plus crash reports.
	ModeMinimal Mode = "minimal"
	// ModeErrorsOnly disables heartbeats; only crashes are reported.
	ModeErrorsOnly Mode = "errors_only"
)

const (
	activityInterval = 5 * time.Second
	minimalInterval  = 5 * time.Minute
	minInterval      = time.Second
)

// Default endpoints shipped in the library. Sends are suppressed until the
// integrator replaces them with real URLs (see placeholderHost).
const (
	defaultTelemetryURL = "https://api.example.com/telemetry"
	defaultCrashURL     = "https://api.example.com/crash"
)

// ParseMode normalizes and validates a mode string. The empty string maps to
// ModeActivity; "error_only" is accepted as an alias of "errors_only".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeActivity):
		return ModeActivity, nil
	case string(ModeMinimal):
		return ModeMinimal, nil
	case string(ModeErrorsOnly), "error_only":
		return ModeErrorsOnly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Interval returns the heartbeat cadence for the mode. ModeErrorsOnly has no
// cadence; it returns zero.
func (m Mode) Interval() time.Duration {
	switch m {
	case ModeMinimal:
		return minimalInterval
	case ModeErrorsOnly:
		return 0
	default:
		return activityInterval
	}
}

// Config holds the agent configuration. It is set once at construction;
// changing the mode requires tearing the agent down and building a new one.
type Config struct {
	Mode         Mode
	TelemetryURL string        // heartbeat endpoint
	CrashURL     string        // crash report endpoint
	Interval     time.Duration // optional override of the mode cadence
}

func (c *Config) applyDefaults() error {
	mode, err := ParseMode(string(c.Mode))
	if err != nil {
		return err
	}
	c.Mode = mode
	if c.TelemetryURL == "" {
		c.TelemetryURL = defaultTelemetryURL
	}
	if c.CrashURL == "" {
		c.CrashURL = defaultCrashURL
	}
	if c.Interval == 0 {
		c.Interval = c.Mode.Interval()
	} else if c.Interval < minInterval {
		c.Interval = minInterval
	}
	return nil
}

// ConfigFromMap builds a Config from a loosely typed settings map, the shape
// hosts typically carry in their own configuration files. Recognized keys:
// "mode", "url" or "telemetry_url" (heartbeat endpoint), "crash_url" and
// "interval" (duration string or number of seconds). Unrecognized keys are
// ignored.
func ConfigFromMap(settings map[string]any) (Config, error) {
	var cfg Config

	if v, ok := settings["mode"]; ok {
		s, ok := v.(string)
		if !ok {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidMode, v)
		}
		mode, err := ParseMode(s)
		if err != nil {
			return Config{}, err
		}
		cfg.Mode = mode
	}

	// "url" is the historical alias for "telemetry_url".
	if s, ok := settings["url"].(string); ok && s != "" {
		cfg.TelemetryURL = s
	}
	if s, ok := settings["telemetry_url"].(string); ok && s != "" {
		cfg.TelemetryURL = s
	}
	if s, ok := settings["crash_url"].(string); ok && s != "" {
		cfg.CrashURL = s
	}

	if v, ok := settings["interval"]; ok {
		d, err := parseInterval(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Interval = d
	}

	return cfg, nil
}

func parseInterval(v any) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("parse interval: %w", err)
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case int64:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("parse interval: unsupported type %T", v)
	}
}
