// SPDX-License-Identifier: MIT

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Sender ships one payload to one URL. Implementations must never panic into
// the caller; every failure comes back as an error value.
type Sender interface {
	Send(ctx context.Context, url string, payload any) error
}

// placeholderHost marks the default endpoints shipped with the library.
// Payloads aimed at it are dropped so telemetry never flows to an endpoint
// the integrator did not configure.
const placeholderHost = "example.com"

const (
	sendTimeout      = 5 * time.Second
	retryInitialWait = 200 * time.Millisecond
)

// HTTPSender posts JSON payloads with a bounded timeout.
type HTTPSender struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPSender creates an HTTPSender. A nil logger falls back to
// slog.Default().
func NewHTTPSender(logger *slog.Logger) *HTTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSender{
		client: &http.Client{Timeout: sendTimeout},
		logger: logger,
	}
}

// Send serializes payload and posts it to url. A non-2xx response is
// reported as ErrEndpointRejected.
func (s *HTTPSender) Send(ctx context.Context, url string, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()

	if strings.Contains(url, placeholderHost) {
		s.logger.Debug("send suppressed, endpoint not configured", "url", url)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrEndpointRejected, resp.StatusCode)
	}
	return nil
}

// sendWithRetry retries a send with exponential backoff, at most maxRetries
// additional attempts. Heartbeats are disposable, so callers drop the
// payload after the final failure.
func sendWithRetry(ctx context.Context, sender Sender, url string, payload any, maxRetries uint64) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryInitialWait

	policy := backoff.WithContext(backoff.WithMaxRetries(eb, maxRetries), ctx)
	return backoff.Retry(func() error {
		return sender.Send(ctx, url, payload)
	}, policy)
}
