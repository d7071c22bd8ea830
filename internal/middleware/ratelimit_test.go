// SPDX-License-Identifier: AGPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/btouchard/blackbox/internal/config"
)

func testConfig(enabled bool) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled: enabled,
		Ingest: config.RouteLimit{
			Requests: 1,
			Period:   config.Duration(time.Minute),
			Burst:    2,
		},
		Admin: config.RouteLimit{
			Requests: 60,
			Period:   config.Duration(time.Minute),
			Burst:    20,
		},
	}
}

func TestRateLimiter_AllowsBurstThenRejects(t *testing.T) {
	rl := NewRateLimiter(testConfig(true), nil)
	defer rl.Stop()

	handler := rl.IngestMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/heartbeat", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler(rec, req)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusAccepted || statuses[1] != http.StatusAccepted {
		t.Errorf("burst requests = %v, want first two accepted", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", statuses[2])
	}
}

func TestRateLimiter_SeparateClientsSeparateBuckets(t *testing.T) {
	rl := NewRateLimiter(testConfig(true), nil)
	defer rl.Stop()

	handler := rl.IngestMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/heartbeat", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Errorf("client %s = %d, want accepted", addr, rec.Code)
		}
	}
}

func TestRateLimiter_DisabledPassesThrough(t *testing.T) {
	rl := NewRateLimiter(testConfig(false), nil)
	defer rl.Stop()

	handler := rl.IngestMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/heartbeat", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("request %d = %d with limiting disabled", i, rec.Code)
		}
	}
}
