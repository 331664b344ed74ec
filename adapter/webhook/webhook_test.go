package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/justapithecus/rpreport/adapter"
	"github.com/justapithecus/rpreport/iox"
)

func testEvent() *adapter.LaunchFinishedEvent {
	return &adapter.LaunchFinishedEvent{
		Version:    "0.3.0",
		EventType:  adapter.EventTypeLaunchFinished,
		Host:       "https://rp.example.com",
		Project:    "demo",
		LaunchID:   "launch-001",
		LaunchURL:  adapter.LaunchURL("https://rp.example.com", "demo", "launch-001"),
		Status:     "PASSED",
		HTTPStatus: 200,
		Timestamp:  "2026-02-07T12:00:00+03:00",
	}
}

// receiver answers with the scripted codes in order, then 200, and keeps
// every request it saw.
type receiver struct {
	mu      sync.Mutex
	codes   []int
	headers []http.Header
	bodies  [][]byte
}

func (r *receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.headers = append(r.headers, req.Header.Clone())
	r.bodies = append(r.bodies, body)
	code := http.StatusOK
	if len(r.codes) > 0 {
		code, r.codes = r.codes[0], r.codes[1:]
	}
	r.mu.Unlock()
	w.WriteHeader(code)
}

func (r *receiver) attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func newAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = time.Millisecond
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { iox.DiscardClose(a) })
	return a
}

func TestPublish_PayloadAndHeaders(t *testing.T) {
	rcv := &receiver{}
	ts := httptest.NewServer(rcv)
	defer ts.Close()

	a := newAdapter(t, Config{
		URL:     ts.URL,
		Headers: map[string]string{"Authorization": "Bearer hook-token"},
	})
	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	h := rcv.headers[0]
	for name, want := range map[string]string{
		"Content-Type":       "application/json",
		HeaderEvent:          adapter.EventTypeLaunchFinished,
		HeaderProject:        "demo",
		HeaderLaunch:         "launch-001",
		HeaderIdempotencyKey: "demo/launch-001/finish",
		"Authorization":      "Bearer hook-token",
	} {
		if got := h.Get(name); got != want {
			t.Errorf("header %s = %q, want %q", name, got, want)
		}
	}

	var p Payload
	if err := json.Unmarshal(rcv.bodies[0], &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	wantText := "Launch launch-001 of demo finished: PASSED https://rp.example.com/ui/#demo/launches/all/launch-001"
	if p.Text != wantText {
		t.Errorf("text = %q, want %q", p.Text, wantText)
	}
	if p.Event == nil || p.Event.LaunchURL != "https://rp.example.com/ui/#demo/launches/all/launch-001" {
		t.Errorf("unexpected event %+v", p.Event)
	}
}

func TestPublish_ConfiguredHeaderWins(t *testing.T) {
	rcv := &receiver{}
	ts := httptest.NewServer(rcv)
	defer ts.Close()

	a := newAdapter(t, Config{URL: ts.URL, Headers: map[string]string{HeaderIdempotencyKey: "fixed"}})
	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := rcv.headers[0].Get(HeaderIdempotencyKey); got != "fixed" {
		t.Errorf("expected configured key, got %q", got)
	}
}

func TestPublish_StatusHandling(t *testing.T) {
	tests := []struct {
		name         string
		codes        []int
		retries      int
		wantAttempts int
		wantErr      bool
		wantStatus   int
	}{
		{"ok", nil, 3, 1, false, 0},
		{"recovers after 5xx", []int{500, 503}, 3, 3, false, 0},
		{"rate limited then ok", []int{429}, 3, 2, false, 0},
		{"request timeout then ok", []int{408}, 1, 2, false, 0},
		{"5xx exhausts retries", []int{502, 502, 502}, 2, 3, true, 502},
		{"bad request", []int{400}, 3, 1, true, 400},
		{"unauthorized", []int{401}, 3, 1, true, 401},
		{"not found", []int{404}, 3, 1, true, 404},
		{"not modified", []int{304}, 3, 1, true, 304},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rcv := &receiver{codes: tt.codes}
			ts := httptest.NewServer(rcv)
			defer ts.Close()

			a := newAdapter(t, Config{URL: ts.URL, Retries: tt.retries})
			err := a.Publish(t.Context(), testEvent())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := rcv.attempts(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
			if tt.wantStatus != 0 {
				var se *StatusError
				if !errors.As(err, &se) || se.Code != tt.wantStatus {
					t.Errorf("expected StatusError %d, got %v", tt.wantStatus, err)
				}
			}
		})
	}
}

func TestPublish_SameKeyOnRetry(t *testing.T) {
	rcv := &receiver{codes: []int{500}}
	ts := httptest.NewServer(rcv)
	defer ts.Close()

	e := testEvent()
	e.Forced = true
	a := newAdapter(t, Config{URL: ts.URL, Retries: 1})
	if err := a.Publish(t.Context(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for i, h := range rcv.headers {
		if got := h.Get(HeaderIdempotencyKey); got != "demo/launch-001/stop" {
			t.Errorf("attempt %d: key = %q", i, got)
		}
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	defer close(release)

	a := newAdapter(t, Config{URL: ts.URL, Timeout: 10 * time.Second})
	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty URL")
	}
	if _, err := New(Config{URL: "http://hooks.local", Retries: -1}); err == nil {
		t.Fatal("expected error for negative retries")
	}

	a, err := New(Config{URL: "http://hooks.local"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, a.config.Timeout)
	}
}
