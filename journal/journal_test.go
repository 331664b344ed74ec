package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"
)

func testEntry() Entry {
	return Entry{
		Project:    "demo",
		LaunchID:   "launch-1",
		Operation:  "finish_item",
		Method:     "PUT",
		Path:       "v1/demo/item/item-1",
		ItemID:     "item-1",
		StatusCode: 200,
		Time:       time.Date(2026, 2, 3, 23, 30, 0, 0, time.FixedZone("X", -3*3600)),
	}
}

func TestDeriveDay_UsesUTC(t *testing.T) {
	// 23:30 at UTC-3 is 02:30 the next day in UTC
	if got := DeriveDay(testEntry().Time); got != "2026-02-04" {
		t.Errorf("DeriveDay = %q, want 2026-02-04", got)
	}
}

func TestToRecordMap(t *testing.T) {
	rec := toRecordMap(testEntry(), Config{Project: "fallback"})

	want := map[string]any{
		"project":     "demo",
		"day":         "2026-02-04",
		"launch_id":   "launch-1",
		"operation":   "finish_item",
		"method":      "PUT",
		"path":        "v1/demo/item/item-1",
		"status_code": 200,
		"item_id":     "item-1",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("record[%q] = %v, want %v", k, rec[k], v)
		}
	}
	if _, ok := rec["error"]; ok {
		t.Error("error key should be omitted when empty")
	}
}

func TestToRecordMap_ProjectFallback(t *testing.T) {
	e := testEntry()
	e.Project = ""
	e.Error = "dial tcp: refused"
	rec := toRecordMap(e, Config{Project: "fallback"})

	if rec["project"] != "fallback" {
		t.Errorf("project = %v, want fallback", rec["project"])
	}
	if rec["error"] != "dial tcp: refused" {
		t.Errorf("error = %v", rec["error"])
	}
}

func TestLodeJournal_Record(t *testing.T) {
	j, err := NewWithFactory(Config{Project: "demo"}, lode.NewMemoryFactory())
	if err != nil {
		t.Fatalf("NewWithFactory failed: %v", err)
	}
	defer func() { _ = j.Close() }()

	if err := j.Record(t.Context(), testEntry()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if j.config.Dataset != DefaultDataset {
		t.Errorf("dataset = %q, want %q", j.config.Dataset, DefaultDataset)
	}
}

func TestLodeJournal_PutAttachment(t *testing.T) {
	j, err := NewWithFactory(Config{Project: "demo"}, lode.NewMemoryFactory())
	if err != nil {
		t.Fatalf("NewWithFactory failed: %v", err)
	}

	if err := j.PutAttachment(t.Context(), "launch-1", "step-1.png", "image/png", []byte("png")); err != nil {
		t.Fatalf("PutAttachment failed: %v", err)
	}
}

func TestLodeJournal_PutAttachmentRejectsTraversal(t *testing.T) {
	j, err := NewWithFactory(Config{Project: "demo"}, lode.NewMemoryFactory())
	if err != nil {
		t.Fatalf("NewWithFactory failed: %v", err)
	}

	for _, name := range []string{"", "../escape.png", "dir/file.png", `dir\file.png`} {
		err := j.PutAttachment(t.Context(), "launch-1", name, "image/png", []byte("x"))
		if !errors.Is(err, ErrInvalidFilename) {
			t.Errorf("PutAttachment(%q) error = %v, want ErrInvalidFilename", name, err)
		}
	}
}

func TestAttachmentPath(t *testing.T) {
	j := &LodeJournal{config: Config{Dataset: "rpreport", Project: "demo"}}
	got := j.attachmentPath("launch-1", "shot.png")
	want := "datasets/rpreport/partitions/project=demo/launch_id=launch-1/attachments/shot.png"
	if got != want {
		t.Errorf("attachmentPath = %q, want %q", got, want)
	}
}

func TestLodeJournal_FS(t *testing.T) {
	j, err := NewFS(Config{Project: "demo"}, t.TempDir())
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	if err := j.Record(t.Context(), testEntry()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
}

func TestStub(t *testing.T) {
	s := NewStub()
	_ = s.Record(t.Context(), Entry{Operation: "start_launch"})
	_ = s.Record(t.Context(), Entry{Operation: "finish_launch"})
	_ = s.PutAttachment(t.Context(), "l", "a.png", "image/png", []byte("x"))

	ops := s.Operations()
	if len(ops) != 2 || ops[0] != "start_launch" || ops[1] != "finish_launch" {
		t.Errorf("operations = %v", ops)
	}
	if len(s.Attachments) != 1 || s.Attachments[0].Filename != "a.png" {
		t.Errorf("attachments = %+v", s.Attachments)
	}

	s.Err = errors.New("boom")
	if err := s.Record(t.Context(), Entry{}); err == nil {
		t.Error("expected configured error")
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in, bucket, prefix string
	}{
		{"bucket", "bucket", ""},
		{"bucket/prefix", "bucket", "prefix"},
		{"bucket/a/b", "bucket", "a/b"},
	}
	for _, tt := range tests {
		b, p := ParseS3Path(tt.in)
		if b != tt.bucket || p != tt.prefix {
			t.Errorf("ParseS3Path(%q) = %q, %q; want %q, %q", tt.in, b, p, tt.bucket, tt.prefix)
		}
	}
}

func TestS3Config_Validate(t *testing.T) {
	if err := (&S3Config{}).Validate(); err == nil {
		t.Error("expected error for empty bucket")
	}
	if err := (&S3Config{Bucket: "b"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestToRecordMap_NoLaunchPartition(t *testing.T) {
	for _, id := range []string{"", "empty id"} {
		e := testEntry()
		e.LaunchID = id
		if got := toRecordMap(e, Config{})["launch_id"]; got != NoLaunch {
			t.Errorf("launch_id for %q = %v, want %q", id, got, NoLaunch)
		}
	}
}
