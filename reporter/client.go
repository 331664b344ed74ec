// Package reporter tracks the state of a test run and reports it to the
// test-management service.
//
// A Client owns one State: the identifiers of the open launch and of the
// open item at each level (suite, feature, scenario, step). Every
// operation issues exactly one request, updates the state from the
// response, and returns the raw response for the caller to inspect.
// The only multi-request operation is RecoverFromFinishConflict.
//
// State is guarded by a mutex so a Client may be shared, but the order of
// calls within one run is the caller's responsibility.
package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/rpreport/adapter"
	"github.com/justapithecus/rpreport/journal"
	"github.com/justapithecus/rpreport/log"
	"github.com/justapithecus/rpreport/metrics"
	"github.com/justapithecus/rpreport/transport"
	"github.com/justapithecus/rpreport/types"
)

// TimeFormat is the layout of start_time, end_time and time fields.
// The configured time zone suffix is appended verbatim.
const TimeFormat = "2006-01-02T15:04:05"

// Operation names used in logs and the journal.
const (
	OpStartLaunch       = "start_launch"
	OpFinishLaunch      = "finish_launch"
	OpForceFinishLaunch = "force_finish_launch"
	OpStartItem         = "start_item"
	OpFinishItem        = "finish_item"
	OpAddLog            = "add_log"
	OpAddAttachment     = "add_attachment"
)

// Transport performs a single HTTP request.
// *transport.Client implements it.
type Transport interface {
	Do(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Config configures a Client.
type Config struct {
	// ProjectName is the service project reports go to (required).
	ProjectName string
	// TimeZone is appended to every timestamp, e.g. "+03:00".
	TimeZone string
	// HostName is the service base URL, e.g. "https://rp.example.com".
	// Launch notifications carry it and a link to the launch page under it.
	HostName string
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to log.Nop().
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCollector sets the metrics collector. Nil disables metrics.
func WithCollector(m *metrics.Collector) Option {
	return func(c *Client) { c.collector = m }
}

// WithJournal records every call and archives attachments.
func WithJournal(j journal.Journal) Option {
	return func(c *Client) { c.journal = j }
}

// WithNotifier publishes an event whenever a launch is finished or stopped.
func WithNotifier(a adapter.Adapter) Option {
	return func(c *Client) { c.notifier = a }
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithState seeds the client with a previously saved state.
func WithState(s State) Option {
	return func(c *Client) { c.state = s }
}

// Client is the run-state tracker and request orchestrator.
type Client struct {
	config    Config
	transport Transport
	logger    *log.Logger
	collector *metrics.Collector
	journal   journal.Journal
	notifier  adapter.Adapter
	now       func() time.Time

	mu    sync.Mutex
	state State
}

// New creates a Client. Returns an error if the project name is empty or
// the transport is nil.
func New(cfg Config, t Transport, opts ...Option) (*Client, error) {
	if cfg.ProjectName == "" {
		return nil, errors.New("reporter requires a project name")
	}
	if t == nil {
		return nil, errors.New("reporter requires a transport")
	}

	c := &Client{
		config:    cfg,
		transport: t,
		logger:    log.Nop(),
		now:       time.Now,
		state:     NewState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns a copy of the current run state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
}

// IsSuiteRunning reports whether a root item is open.
func (c *Client) IsSuiteRunning() bool { return c.State().IsSuiteRunning() }

// IsFeatureRunning reports whether a feature item is open.
func (c *Client) IsFeatureRunning() bool { return c.State().IsFeatureRunning() }

// IsScenarioRunning reports whether a scenario item is open.
func (c *Client) IsScenarioRunning() bool { return c.State().IsScenarioRunning() }

// IsStepRunning reports whether a step item is open.
func (c *Client) IsStepRunning() bool { return c.State().IsStepRunning() }

// --- Launch ---

type startLaunchRQ struct {
	Description string           `json:"description"`
	Mode        types.LaunchMode `json:"mode"`
	Name        string           `json:"name"`
	StartTime   string           `json:"start_time"`
	Tags        []string         `json:"tags"`
}

type finishLaunchRQ struct {
	EndTime string           `json:"end_time"`
	Status  types.ItemStatus `json:"status"`
}

// StartLaunch creates a launch and stores its id as the current launch.
// A response without an id leaves the launch absent; calls that need it
// fail later with ErrMissingID.
func (c *Client) StartLaunch(ctx context.Context, name, description string, mode types.LaunchMode, tags []string) (*transport.Response, error) {
	if mode == "" {
		mode = types.LaunchModeDefault
	}
	resp, err := c.send(ctx, OpStartLaunch, "", &transport.Request{
		Method: http.MethodPost,
		Path:   c.path("launch"),
		JSON: startLaunchRQ{
			Description: description,
			Mode:        mode,
			Name:        name,
			StartTime:   c.timestamp(),
			Tags:        nonNil(tags),
		},
	})
	if resp == nil {
		return nil, err
	}

	id, _ := resp.Field("id")
	c.update(func(s *State) { s.LaunchID = id })
	if resp.OK() {
		c.collector.IncLaunchStarted()
	}
	c.logger.Info("launch started", map[string]any{
		"name":        name,
		"launch_id":   id,
		"status_code": resp.StatusCode,
	})
	return resp, err
}

// FinishLaunch finishes the current launch. The launch id is kept.
func (c *Client) FinishLaunch(ctx context.Context, status types.ItemStatus) (*transport.Response, error) {
	return c.endLaunch(ctx, status, false)
}

// ForceFinishLaunch stops the current launch through the non-graceful
// stop endpoint.
func (c *Client) ForceFinishLaunch(ctx context.Context, status types.ItemStatus) (*transport.Response, error) {
	return c.endLaunch(ctx, status, true)
}

func (c *Client) endLaunch(ctx context.Context, status types.ItemStatus, forced bool) (*transport.Response, error) {
	op, action := OpFinishLaunch, "finish"
	if forced {
		op, action = OpForceFinishLaunch, "stop"
	}

	launchID := c.State().LaunchID
	if !addressable(launchID) {
		return nil, fmt.Errorf("%s: launch: %w", op, ErrMissingID)
	}

	resp, err := c.send(ctx, op, "", &transport.Request{
		Method: http.MethodPut,
		Path:   c.path("launch", launchID, action),
		JSON:   finishLaunchRQ{EndTime: c.timestamp(), Status: status},
	})
	if resp.OK() {
		if forced {
			c.collector.IncLaunchStopped()
		} else {
			c.collector.IncLaunchFinished()
		}
		c.notify(ctx, launchID, status, forced, resp.StatusCode)
	}
	return resp, err
}

// --- Suite ---

type startItemRQ struct {
	Description string         `json:"description"`
	LaunchID    string         `json:"launch_id"`
	Name        string         `json:"name"`
	StartTime   string         `json:"start_time"`
	Tags        []string       `json:"tags"`
	Type        types.ItemType `json:"type"`
}

type finishItemRQ struct {
	Description string           `json:"description"`
	EndTime     string           `json:"end_time"`
	Status      types.ItemStatus `json:"status"`
}

// StartSuite creates the root item of the current launch and stores its id.
func (c *Client) StartSuite(ctx context.Context, name, description string, tags []string) (*transport.Response, error) {
	resp, err := c.StartChildItem(ctx, "", description, name, types.ItemTypeSuite, tags)
	if resp == nil {
		return nil, err
	}
	id, _ := resp.Field("id")
	c.update(func(s *State) { s.RootItemID = id })
	return resp, err
}

// FinishSuite finishes the root item with status PASSED, whatever the
// outcome of its children, and resets the root id to the empty sentinel.
// Returns ErrNotRunning without a request when no suite is open.
func (c *Client) FinishSuite(ctx context.Context) (*transport.Response, error) {
	rootID := c.State().RootItemID
	if rootID == types.EmptyID {
		return nil, fmt.Errorf("finish suite: %w", ErrNotRunning)
	}

	resp, err := c.FinishItem(ctx, rootID, types.StatusPassed, "")
	// A transport failure keeps the suite open so the caller can retry.
	if resp != nil || errors.Is(err, ErrMissingID) {
		c.update(func(s *State) { s.RootItemID = types.EmptyID })
	}
	return resp, err
}

// --- Generic items ---

// StartChildItem creates an item of the given type under parentID in the
// current launch. An empty parentID creates a top-level item.
// The new id is not stored; read it from the response.
func (c *Client) StartChildItem(ctx context.Context, parentID, description, name string, itemType types.ItemType, tags []string) (*transport.Response, error) {
	launchID := c.State().LaunchID
	if !addressable(launchID) {
		return nil, fmt.Errorf("%s: launch: %w", OpStartItem, ErrMissingID)
	}

	path := c.path("item")
	if parentID != "" {
		if !addressable(parentID) {
			return nil, fmt.Errorf("%s: parent: %w", OpStartItem, ErrMissingID)
		}
		path = c.path("item", parentID)
	}

	resp, err := c.send(ctx, OpStartItem, parentID, &transport.Request{
		Method: http.MethodPost,
		Path:   path,
		JSON: startItemRQ{
			Description: description,
			LaunchID:    launchID,
			Name:        name,
			StartTime:   c.timestamp(),
			Tags:        nonNil(tags),
			Type:        itemType,
		},
	})
	if resp.OK() {
		c.collector.IncItemStarted()
	}
	return resp, err
}

// FinishItem finishes the item with the given id.
func (c *Client) FinishItem(ctx context.Context, itemID string, status types.ItemStatus, description string) (*transport.Response, error) {
	if !addressable(itemID) {
		return nil, fmt.Errorf("%s: %w", OpFinishItem, ErrMissingID)
	}

	resp, err := c.send(ctx, OpFinishItem, itemID, &transport.Request{
		Method: http.MethodPut,
		Path:   c.path("item", itemID),
		JSON: finishItemRQ{
			Description: description,
			EndTime:     c.timestamp(),
			Status:      status,
		},
	})
	if resp.OK() {
		c.collector.IncItemFinished()
	}
	return resp, err
}

// --- Logs ---

type saveLogRQ struct {
	ItemID  string         `json:"item_id"`
	Message string         `json:"message"`
	Time    string         `json:"time"`
	Level   types.LogLevel `json:"level"`
}

type logFile struct {
	Name string `json:"name"`
}

type attachmentLogRQ struct {
	File logFile `json:"file"`
	saveLogRQ
}

// AttachmentName is the file name the JSON part references and the binary
// part carries.
const AttachmentName = "picture"

// AddLogMessage attaches a plain log entry to an item.
func (c *Client) AddLogMessage(ctx context.Context, itemID, message string, level types.LogLevel) (*transport.Response, error) {
	if !addressable(itemID) {
		return nil, fmt.Errorf("%s: %w", OpAddLog, ErrMissingID)
	}

	resp, err := c.send(ctx, OpAddLog, itemID, &transport.Request{
		Method: http.MethodPost,
		Path:   c.path("log"),
		JSON: saveLogRQ{
			ItemID:  itemID,
			Message: message,
			Time:    c.timestamp(),
			Level:   level,
		},
	})
	if resp.OK() {
		c.collector.IncLogSent()
	}
	return resp, err
}

// AddLogMessageWithAttachment attaches a log entry with binary content,
// typed image/<subtype>, to an item. When no step is running it makes no
// request and returns (nil, nil).
func (c *Client) AddLogMessageWithAttachment(ctx context.Context, itemID, message string, level types.LogLevel, content []byte, subtype string) (*transport.Response, error) {
	if !c.IsStepRunning() {
		c.collector.IncAttachmentSkipped()
		c.logger.Debug("attachment skipped: no step running", map[string]any{"item_id": itemID})
		return nil, nil
	}
	if !addressable(itemID) {
		return nil, fmt.Errorf("%s: %w", OpAddAttachment, ErrMissingID)
	}

	meta := []attachmentLogRQ{{
		File: logFile{Name: AttachmentName},
		saveLogRQ: saveLogRQ{
			ItemID:  itemID,
			Message: message,
			Time:    c.timestamp(),
			Level:   level,
		},
	}}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpAddAttachment, err)
	}
	contentType := "image/" + subtype

	resp, err := c.send(ctx, OpAddAttachment, itemID, &transport.Request{
		Method: http.MethodPost,
		Path:   c.path("log"),
		Parts: []transport.Part{
			{
				Name:             "json_request_part",
				ContentType:      "application/json",
				TransferEncoding: "8bit",
				Data:             metaJSON,
			},
			{
				Name:             "binary_part",
				FileName:         AttachmentName,
				ContentType:      contentType,
				TransferEncoding: "binary",
				Data:             content,
			},
		},
	})
	if resp.OK() {
		c.collector.IncAttachmentSent()
	}
	c.archive(ctx, itemID, subtype, contentType, content)
	return resp, err
}

// --- Plumbing ---

// path builds "v1/<project>/<segments...>" with each segment escaped.
func (c *Client) path(segments ...string) string {
	var b strings.Builder
	b.WriteString("v1/")
	b.WriteString(url.PathEscape(c.config.ProjectName))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) timestamp() string {
	return c.now().Format(TimeFormat) + c.config.TimeZone
}

// send issues one request and records its outcome in metrics, logs and
// the journal. The response and error are passed through unchanged.
func (c *Client) send(ctx context.Context, op, itemID string, req *transport.Request) (*transport.Response, error) {
	c.collector.IncRequestSent()
	resp, err := c.transport.Do(ctx, req)

	entry := journal.Entry{
		Project:   c.config.ProjectName,
		LaunchID:  c.State().LaunchID,
		Operation: op,
		Method:    req.Method,
		Path:      req.Path,
		ItemID:    itemID,
		Time:      c.now(),
	}

	switch {
	case resp == nil:
		c.collector.IncRequestFailure()
		entry.Error = errString(err)
		c.logger.Error("request failed", map[string]any{
			"operation": op,
			"path":      req.Path,
			"error":     entry.Error,
		})
	case !resp.OK():
		c.collector.IncHTTPErrorStatus()
		entry.StatusCode = resp.StatusCode
		c.logger.Warn("error status from service", map[string]any{
			"operation":   op,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		})
	default:
		entry.StatusCode = resp.StatusCode
		c.logger.Debug("request completed", map[string]any{
			"operation":   op,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		})
	}

	if c.journal != nil {
		if jerr := c.journal.Record(ctx, entry); jerr != nil {
			c.collector.IncJournalFailure()
			c.logger.Warn("journal write failed", map[string]any{"error": jerr.Error()})
		}
	}
	return resp, err
}

func (c *Client) archive(ctx context.Context, itemID, subtype, contentType string, content []byte) {
	if c.journal == nil {
		return
	}
	name := fmt.Sprintf("%s-%d.%s", itemID, c.now().UnixNano(), subtype)
	if err := c.journal.PutAttachment(ctx, c.State().LaunchID, name, contentType, content); err != nil {
		c.collector.IncJournalFailure()
		c.logger.Warn("attachment archive failed", map[string]any{"error": err.Error(), "file": name})
	}
}

func (c *Client) notify(ctx context.Context, launchID string, status types.ItemStatus, forced bool, httpStatus int) {
	if c.notifier == nil {
		return
	}
	event := &adapter.LaunchFinishedEvent{
		Version:    types.Version,
		EventType:  adapter.EventTypeLaunchFinished,
		Host:       c.config.HostName,
		Project:    c.config.ProjectName,
		LaunchID:   launchID,
		LaunchURL:  adapter.LaunchURL(c.config.HostName, c.config.ProjectName, launchID),
		Status:     string(status),
		Forced:     forced,
		HTTPStatus: httpStatus,
		Timestamp:  c.timestamp(),
	}
	if err := c.notifier.Publish(ctx, event); err != nil {
		c.collector.IncNotifyFailure()
		c.logger.Warn("launch notification failed", map[string]any{
			"launch_id":  launchID,
			"launch_url": event.LaunchURL,
			"error":      err.Error(),
		})
	}
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
