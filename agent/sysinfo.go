// SPDX-License-Identifier: MIT

package agent

import (
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// systemInfo describes the process runtime for a heartbeat payload.
func systemInfo() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"go_version":   runtime.Version(),
		"cpu_cores":    runtime.NumCPU(),
		"goroutines":   runtime.NumGoroutine(),
		"mem_alloc_mb": mem.Alloc / 1024 / 1024,
	}
}

// osDescriptor is the single-string platform descriptor used in crash
// reports.
func osDescriptor() string {
	return runtime.GOOS + "/" + runtime.GOARCH + " " + runtime.Version()
}

// ramUsagePercent reports system memory utilization, or -1 when the platform
// exposes no cheap way to read it. Only /proc/meminfo is probed; anything
// heavier does not belong on the heartbeat path.
func ramUsagePercent() float64 {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return -1
	}
	return parseMeminfo(string(data))
}

func parseMeminfo(s string) float64 {
	var total, available float64
	var foundAvailable bool

	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total, _ = strconv.ParseFloat(fields[1], 64)
		case "MemAvailable:":
			available, _ = strconv.ParseFloat(fields[1], 64)
			foundAvailable = true
		}
	}

	if total <= 0 || !foundAvailable {
		return -1
	}
	return math.Round((total-available)/total*10000) / 100
}
