// Package webhook posts launch outcomes to an HTTP endpoint.
//
// The body is a chat-friendly envelope: a "text" line readable by Slack or
// Mattermost style incoming webhooks, plus the full event under "event".
// Requests carry the launch identity in headers so receivers can route or
// deduplicate without parsing the body.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/justapithecus/rpreport/adapter"
	"github.com/justapithecus/rpreport/iox"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Headers set on every request. Configured headers with the same name win.
const (
	HeaderEvent          = "X-Rpreport-Event"
	HeaderProject        = "X-Rpreport-Project"
	HeaderLaunch         = "X-Rpreport-Launch"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// Config configures the webhook adapter.
type Config struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are extra headers, e.g. Authorization.
	Headers map[string]string
	// Timeout bounds each request (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// BaseBackoff is the first retry delay; it doubles per retry.
	BaseBackoff time.Duration
}

// Payload is the request body.
type Payload struct {
	Text  string                       `json:"text"`
	Event *adapter.LaunchFinishedEvent `json:"event"`
}

// Adapter posts launch events.
type Adapter struct {
	config  Config
	backoff adapter.Backoff
	client  *http.Client
}

// New creates a webhook adapter. Returns an error if the URL is empty or
// retries are negative.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Adapter{
		config:  cfg,
		backoff: adapter.Backoff{Retries: cfg.Retries, Base: cfg.BaseBackoff},
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Publish posts the event. 5xx, 408, 429 and network errors are retried;
// other statuses outside 2xx fail at once.
func (a *Adapter) Publish(ctx context.Context, event *adapter.LaunchFinishedEvent) error {
	body, err := json.Marshal(Payload{Text: event.Summary(), Event: event})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	_, err = adapter.Retry(ctx, a.backoff, func(ctx context.Context) error {
		return a.post(ctx, event, body)
	})
	if err != nil {
		return fmt.Errorf("webhook: launch %s: %w", event.LaunchID, err)
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

func retriable(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

func (a *Adapter) post(ctx context.Context, event *adapter.LaunchFinishedEvent, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return adapter.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event.EventType)
	req.Header.Set(HeaderProject, event.Project)
	req.Header.Set(HeaderLaunch, event.LaunchID)
	req.Header.Set(HeaderIdempotencyKey, event.Key())
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DrainClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case retriable(resp.StatusCode):
		return &StatusError{Code: resp.StatusCode}
	default:
		return adapter.Permanent(&StatusError{Code: resp.StatusCode})
	}
}

// Close drops idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
