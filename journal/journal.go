// Package journal records every report call and archives attachments.
//
// The journal is a local audit trail of what was sent to the service:
// one record per request, partitioned by project, day, launch and
// operation, plus the raw bytes of every attachment. It is written
// through Lode to a filesystem or S3 backend.
package journal

import (
	"context"
	"sync"
	"time"
)

// Entry is one journaled report call.
type Entry struct {
	Project    string
	LaunchID   string
	Operation  string // start_launch, finish_item, add_log, ...
	Method     string
	Path       string
	ItemID     string
	StatusCode int // 0 when the transport failed
	Error      string
	Time       time.Time
}

// Journal abstracts the journal backend.
type Journal interface {
	// Record appends one entry.
	Record(ctx context.Context, e Entry) error
	// PutAttachment archives the bytes of an attachment under the launch.
	// The filename must not contain path separators or "..".
	PutAttachment(ctx context.Context, launchID, filename, contentType string, data []byte) error
	// Close releases journal resources.
	Close() error
}

// DeriveDay computes the partition day from a timestamp.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Stub records calls in memory for testing.
type Stub struct {
	mu          sync.Mutex
	Entries     []Entry
	Attachments []StubAttachment
	// Err, when set, is returned from every call.
	Err error
}

// StubAttachment is a recorded PutAttachment call.
type StubAttachment struct {
	LaunchID    string
	Filename    string
	ContentType string
	Data        []byte
}

// NewStub creates an empty stub journal.
func NewStub() *Stub {
	return &Stub{}
}

// Record implements Journal.
func (s *Stub) Record(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Entries = append(s.Entries, e)
	return nil
}

// PutAttachment implements Journal.
func (s *Stub) PutAttachment(_ context.Context, launchID, filename, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Attachments = append(s.Attachments, StubAttachment{
		LaunchID:    launchID,
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	})
	return nil
}

// Close implements Journal.
func (s *Stub) Close() error { return nil }

// Operations returns the recorded operation names in order.
func (s *Stub) Operations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		ops[i] = e.Operation
	}
	return ops
}

var _ Journal = (*Stub)(nil)
