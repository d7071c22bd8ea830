// SPDX-License-Identifier: AGPL-3.0-or-later

// Command simulator is a demo host application with the telemetry agent
// embedded. It updates its state in a loop against a local collector and can
// crash on demand to exercise the black box path.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btouchard/blackbox/agent"
)

func main() {
	collectorURL := flag.String("collector", "http://localhost:8080", "base URL of the collector")
	modeFlag := flag.String("mode", "activity", "telemetry mode: activity, minimal or errors_only")
	crashAfter := flag.Duration("crash-after", 0, "panic after this long (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	mode, err := agent.ParseMode(*modeFlag)
	if err != nil {
		logger.Error("invalid mode", "mode", *modeFlag, "error", err)
		os.Exit(1)
	}

	a, err := agent.New(agent.Config{
		Mode:         mode,
		TelemetryURL: *collectorURL + "/v1/heartbeat",
		CrashURL:     *collectorURL + "/v1/crash",
	}, agent.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create agent", "error", err)
		os.Exit(1)
	}

	if err := a.Setup(); err != nil {
		logger.Error("failed to start agent", "error", err)
		os.Exit(1)
	}
	defer a.Teardown()
	defer agent.Recover()

	logger.Info("simulator started", "session", a.Session(), "mode", mode)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var crash <-chan time.Time
	if *crashAfter > 0 {
		crash = time.After(*crashAfter)
	}

	level := 1
	score := 0
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			score += rand.Intn(250)
			if score > level*1000 {
				level++
			}
			a.UpdateState(map[string]any{
				"level":     level,
				"score":     score,
				"player":    "sim-player",
				"api_token": "sk-local-demo-credential", // redacted before leaving the process
			})
			logger.Debug("state updated", "level", level, "score", score)
		case <-crash:
			panic(fmt.Sprintf("simulated fatal error at level %d", level))
		case <-stop:
			logger.Info("simulator stopping")
			return
		}
	}
}
