// SPDX-License-Identifier: AGPL-3.0-or-later

// Package http provides HTTP handlers that delegate to application services.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/btouchard/blackbox/internal/app"
	"github.com/btouchard/blackbox/internal/domain"
)

// Handlers holds HTTP handlers and their dependencies.
type Handlers struct {
	ingest *app.IngestService
	stats  *app.StatsService
	logger *slog.Logger
}

// NewHandlers creates a new Handlers with the given services.
func NewHandlers(ingest *app.IngestService, stats *app.StatsService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		ingest: ingest,
		stats:  stats,
		logger: logger,
	}
}

// Healthcheck returns a simple health status.
func (h *Handlers) Healthcheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HeartbeatRequest is the JSON payload agents post to /v1/heartbeat.
// It mirrors agent.HeartbeatPayload.
type HeartbeatRequest struct {
	Type      string          `json:"type"`
	Session   string          `json:"session"`
	State     json.RawMessage `json:"state"`
	System    json.RawMessage `json:"system"`
	RAMUsage  float64         `json:"ram_usage"`
	Timestamp int64           `json:"timestamp"`
}

// Heartbeat handles heartbeat submissions.
func (h *Handlers) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid JSON", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	err := h.ingest.SaveHeartbeat(r.Context(), app.IngestHeartbeatInput{
		SessionID: req.Session,
		Timestamp: req.Timestamp,
		State:     req.State,
		System:    req.System,
		RAMUsage:  req.RAMUsage,
	})
	if err != nil {
		h.respondIngestError(w, "heartbeat", req.Session, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "message": "Heartbeat received"})
}

// CrashRequest is the JSON payload agents post to /v1/crash.
// It mirrors agent.CrashPayload.
type CrashRequest struct {
	Type      string          `json:"type"`
	Session   string          `json:"session"`
	Error     string          `json:"error"`
	Traceback string          `json:"traceback"`
	OS        string          `json:"os"`
	LastState json.RawMessage `json:"last_state"`
}

// Crash handles crash report submissions.
func (h *Handlers) Crash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CrashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid JSON", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	err := h.ingest.SaveCrash(r.Context(), app.IngestCrashInput{
		SessionID: req.Session,
		Error:     req.Error,
		Traceback: req.Traceback,
		OS:        req.OS,
		LastState: req.LastState,
	})
	if err != nil {
		h.respondIngestError(w, "crash report", req.Session, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "message": "Crash report received"})
}

func (h *Handlers) respondIngestError(w http.ResponseWriter, kind, session string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSessionID),
		errors.Is(err, domain.ErrInvalidHeartbeat),
		errors.Is(err, domain.ErrInvalidCrashReport),
		errors.Is(err, domain.ErrInvalidState):
		h.logger.Warn("rejected payload", "kind", kind, "session", session, "error", err)
		http.Error(w, "Invalid payload", http.StatusBadRequest)
	default:
		h.logger.Error("ingest failed", "kind", kind, "session", session, "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
	}
}

// AdminStats returns aggregated collector statistics.
func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats query failed", "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"sessions":   stats.Sessions,
		"heartbeats": stats.Heartbeats,
		"crashes":    stats.Crashes,
	}
	if !stats.LastCrashAt.IsZero() {
		resp["last_crash_at"] = stats.LastCrashAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// crashSummary is the admin-facing view of one crash report.
type crashSummary struct {
	ID         int64          `json:"id"`
	Session    string         `json:"session"`
	Error      string         `json:"error"`
	Traceback  string         `json:"traceback"`
	OS         string         `json:"os"`
	LastState  map[string]any `json:"last_state"`
	ReceivedAt time.Time      `json:"received_at"`
}

// AdminCrashes lists the most recent crash reports. An optional ?limit=
// query parameter caps the result.
func (h *Handlers) AdminCrashes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	reports, err := h.stats.RecentCrashes(r.Context(), limit)
	if err != nil {
		h.logger.Error("crash listing failed", "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	out := make([]crashSummary, 0, len(reports))
	for _, cr := range reports {
		out = append(out, crashSummary{
			ID:         cr.ID,
			Session:    cr.SessionID.String(),
			Error:      cr.Error,
			Traceback:  cr.Traceback,
			OS:         cr.OS,
			LastState:  cr.LastState,
			ReceivedAt: cr.ReceivedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
