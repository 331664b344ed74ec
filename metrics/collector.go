// Package metrics counts reporter activity for a single client.
//
// The Collector is a leaf package with no internal dependencies. All
// increment methods are nil-receiver safe, so callers that do not want
// metrics can pass a nil *Collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Transport
	RequestsSent      int64 `json:"requests_sent" yaml:"requests_sent"`
	RequestFailures   int64 `json:"request_failures" yaml:"request_failures"`
	HTTPErrorStatuses int64 `json:"http_error_statuses" yaml:"http_error_statuses"`

	// Launch lifecycle
	LaunchesStarted  int64 `json:"launches_started" yaml:"launches_started"`
	LaunchesFinished int64 `json:"launches_finished" yaml:"launches_finished"`
	LaunchesStopped  int64 `json:"launches_stopped" yaml:"launches_stopped"`

	// Items and logs
	ItemsStarted       int64 `json:"items_started" yaml:"items_started"`
	ItemsFinished      int64 `json:"items_finished" yaml:"items_finished"`
	LogsSent           int64 `json:"logs_sent" yaml:"logs_sent"`
	AttachmentsSent    int64 `json:"attachments_sent" yaml:"attachments_sent"`
	AttachmentsSkipped int64 `json:"attachments_skipped" yaml:"attachments_skipped"`

	// Recovery
	ConflictsDetected int64 `json:"conflicts_detected" yaml:"conflicts_detected"`
	ItemsCancelled    int64 `json:"items_cancelled" yaml:"items_cancelled"`

	// Side channels
	JournalFailures int64 `json:"journal_failures" yaml:"journal_failures"`
	NotifyFailures  int64 `json:"notify_failures" yaml:"notify_failures"`

	// Project is informational, set at construction.
	Project string `json:"project" yaml:"project"`
}

// Collector accumulates counters. Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector labelled with the project name.
func NewCollector(project string) *Collector {
	return &Collector{s: Snapshot{Project: project}}
}

func (c *Collector) inc(field func(*Snapshot) *int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field(&c.s)++
	c.mu.Unlock()
}

// --- Transport ---

// IncRequestSent records a request handed to the transport.
func (c *Collector) IncRequestSent() { c.inc(func(s *Snapshot) *int64 { return &s.RequestsSent }) }

// IncRequestFailure records a transport-level failure (no response).
func (c *Collector) IncRequestFailure() {
	c.inc(func(s *Snapshot) *int64 { return &s.RequestFailures })
}

// IncHTTPErrorStatus records a response with a 4xx/5xx status.
func (c *Collector) IncHTTPErrorStatus() {
	c.inc(func(s *Snapshot) *int64 { return &s.HTTPErrorStatuses })
}

// --- Launch lifecycle ---

// IncLaunchStarted records a launch creation.
func (c *Collector) IncLaunchStarted() {
	c.inc(func(s *Snapshot) *int64 { return &s.LaunchesStarted })
}

// IncLaunchFinished records a graceful launch finish.
func (c *Collector) IncLaunchFinished() {
	c.inc(func(s *Snapshot) *int64 { return &s.LaunchesFinished })
}

// IncLaunchStopped records a force-finish (stop) of a launch.
func (c *Collector) IncLaunchStopped() {
	c.inc(func(s *Snapshot) *int64 { return &s.LaunchesStopped })
}

// --- Items and logs ---

// IncItemStarted records an item creation at any level.
func (c *Collector) IncItemStarted() { c.inc(func(s *Snapshot) *int64 { return &s.ItemsStarted }) }

// IncItemFinished records an item finish at any level.
func (c *Collector) IncItemFinished() {
	c.inc(func(s *Snapshot) *int64 { return &s.ItemsFinished })
}

// IncLogSent records a plain log entry.
func (c *Collector) IncLogSent() { c.inc(func(s *Snapshot) *int64 { return &s.LogsSent }) }

// IncAttachmentSent records a log entry with attachment.
func (c *Collector) IncAttachmentSent() {
	c.inc(func(s *Snapshot) *int64 { return &s.AttachmentsSent })
}

// IncAttachmentSkipped records an attachment dropped because no step was running.
func (c *Collector) IncAttachmentSkipped() {
	c.inc(func(s *Snapshot) *int64 { return &s.AttachmentsSkipped })
}

// --- Recovery ---

// IncConflictDetected records a finish conflict reported by the service.
func (c *Collector) IncConflictDetected() {
	c.inc(func(s *Snapshot) *int64 { return &s.ConflictsDetected })
}

// IncItemCancelled records an orphaned item cancelled during recovery.
func (c *Collector) IncItemCancelled() {
	c.inc(func(s *Snapshot) *int64 { return &s.ItemsCancelled })
}

// --- Side channels ---

// IncJournalFailure records a failed journal write.
func (c *Collector) IncJournalFailure() {
	c.inc(func(s *Snapshot) *int64 { return &s.JournalFailures })
}

// IncNotifyFailure records a failed launch notification.
func (c *Collector) IncNotifyFailure() {
	c.inc(func(s *Snapshot) *int64 { return &s.NotifyFailures })
}

// Snapshot returns a copy of all counters. The Collector can continue to
// be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
