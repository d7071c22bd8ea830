// SPDX-License-Identifier: AGPL-3.0-or-later

package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// AuthMiddleware guards the admin surface with a shared API key. Agents
// themselves are anonymous; only the read endpoints need protection.
type AuthMiddleware struct {
	apiKey string
	logger *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(apiKey string, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		apiKey: apiKey,
		logger: logger,
	}
}

// RequireAPIKey wraps a handler to require a matching X-API-Key header.
// With no key configured the admin surface is closed entirely.
func (m *AuthMiddleware) RequireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.apiKey == "" {
			m.logger.Warn("admin request rejected, no API key configured", "path", r.URL.Path)
			http.Error(w, "Admin API disabled", http.StatusForbidden)
			return
		}

		provided := r.Header.Get("X-API-Key")
		if provided == "" {
			http.Error(w, "Missing API key", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.apiKey)) != 1 {
			m.logger.Warn("invalid admin API key", "path", r.URL.Path)
			http.Error(w, "Invalid API key", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}
