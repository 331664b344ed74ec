package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/rpreport/types"
)

// DefaultDataset is the Lode dataset ID used when none is configured.
const DefaultDataset = "rpreport"

// NoLaunch is the launch_id partition value for calls made without a launch.
const NoLaunch = "none"

// ErrInvalidFilename is returned for attachment names that would escape
// the launch partition.
var ErrInvalidFilename = errors.New("invalid attachment filename")

// Config holds journal configuration.
type Config struct {
	// Dataset is the Lode dataset ID (default "rpreport").
	Dataset string
	// Project is the partition key for the reporting project.
	Project string
}

// LodeJournal is a Lode-backed implementation of Journal.
// Uses Lode's HiveLayout with partition keys: project/day/launch_id/operation.
type LodeJournal struct {
	dataset lode.Dataset
	config  Config

	mu sync.Mutex // serializes dataset writes

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error
}

// NewFS creates a journal with filesystem storage rooted at root.
func NewFS(cfg Config, root string) (*LodeJournal, error) {
	return NewWithFactory(cfg, lode.NewFSFactory(root))
}

// NewWithFactory creates a journal with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewWithFactory(cfg Config, factory lode.StoreFactory) (*LodeJournal, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	ds, err := lode.NewDataset(
		lode.DatasetID(cfg.Dataset),
		factory,
		lode.WithHiveLayout("project", "day", "launch_id", "operation"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}

	return &LodeJournal{
		dataset:      ds,
		config:       cfg,
		storeFactory: factory,
	}, nil
}

// Record writes one entry as a single-record Lode segment.
func (j *LodeJournal) Record(ctx context.Context, e Entry) error {
	record := toRecordMap(e, j.config)

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, j.config.Dataset)
	}
	return nil
}

// PutAttachment writes attachment bytes to the Lode store at the
// launch's Hive partition under attachments/.
func (j *LodeJournal) PutAttachment(ctx context.Context, launchID, filename, _ string, data []byte) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	store, err := j.getOrCreateStore()
	if err != nil {
		return WrapInitError(err, j.config.Dataset)
	}

	path := j.attachmentPath(launchID, filename)
	if err := store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, path)
	}
	return nil
}

// Close releases journal resources.
func (j *LodeJournal) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

func (j *LodeJournal) getOrCreateStore() (lode.Store, error) {
	j.storeOnce.Do(func() {
		j.store, j.storeErr = j.storeFactory()
	})
	return j.store, j.storeErr
}

// attachmentPath computes the Hive-partitioned path for an attachment.
// Format: datasets/<dataset>/partitions/project=<p>/launch_id=<l>/attachments/<filename>
func (j *LodeJournal) attachmentPath(launchID, filename string) string {
	launchID = partitionLaunch(launchID)
	return fmt.Sprintf("datasets/%s/partitions/project=%s/launch_id=%s/attachments/%s",
		j.config.Dataset,
		j.config.Project,
		launchID,
		filename,
	)
}

func toRecordMap(e Entry, cfg Config) map[string]any {
	project := e.Project
	if project == "" {
		project = cfg.Project
	}
	launchID := partitionLaunch(e.LaunchID)
	record := map[string]any{
		"project":     project,
		"day":         DeriveDay(e.Time),
		"launch_id":   launchID,
		"operation":   e.Operation,
		"method":      e.Method,
		"path":        e.Path,
		"status_code": e.StatusCode,
		"ts":          e.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if e.ItemID != "" {
		record["item_id"] = e.ItemID
	}
	if e.Error != "" {
		record["error"] = e.Error
	}
	return record
}

var _ Journal = (*LodeJournal)(nil)

// partitionLaunch maps absent and sentinel launch IDs to NoLaunch.
func partitionLaunch(id string) string {
	if id == "" || id == types.EmptyID {
		return NoLaunch
	}
	return id
}
