// Package redis announces launch outcomes over Redis.
//
// Each outcome is written to a per-launch hash, so late readers (CI gates
// polling for a result) can still find it, and published on a channel for
// live subscribers. Both happen in one MULTI/EXEC transaction.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/rpreport/adapter"
)

// ProjectPlaceholder in Channel or KeyPrefix is replaced by the event's
// project name.
const ProjectPlaceholder = "{project}"

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "rpreport:launch_finished"

// DefaultKeyPrefix prefixes the per-launch outcome hash.
const DefaultKeyPrefix = "rpreport:" + ProjectPlaceholder + ":launch:"

// DefaultKeyTTL is how long an outcome hash is kept.
const DefaultKeyTTL = 7 * 24 * time.Hour

// DefaultTimeout is the default per-attempt timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel (default rpreport:launch_finished).
	Channel string
	// KeyPrefix prefixes the outcome hash key; the launch id follows.
	KeyPrefix string
	// KeyTTL is the outcome hash lifetime. Zero means DefaultKeyTTL,
	// negative skips the hash and only publishes.
	KeyTTL time.Duration
	// Timeout bounds each attempt (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// BaseBackoff is the first retry delay; it doubles per retry.
	BaseBackoff time.Duration
}

// Adapter writes and publishes launch outcomes.
type Adapter struct {
	config  Config
	backoff adapter.Backoff
	client  *goredis.Client
}

// New creates a Redis adapter. Returns an error if the URL is empty or
// invalid, or retries are negative.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.KeyTTL == 0 {
		cfg.KeyTTL = DefaultKeyTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Adapter{
		config:  cfg,
		backoff: adapter.Backoff{Retries: cfg.Retries, Base: cfg.BaseBackoff},
		client:  goredis.NewClient(opts),
	}, nil
}

// ChannelFor returns the channel an event for project is published on.
func (a *Adapter) ChannelFor(project string) string {
	return strings.ReplaceAll(a.config.Channel, ProjectPlaceholder, project)
}

// KeyFor returns the outcome hash key of a launch.
func (a *Adapter) KeyFor(project, launchID string) string {
	return strings.ReplaceAll(a.config.KeyPrefix, ProjectPlaceholder, project) + launchID
}

// Publish records the outcome hash and publishes the event atomically.
// A closed client is not retried.
func (a *Adapter) Publish(ctx context.Context, event *adapter.LaunchFinishedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}
	key := a.KeyFor(event.Project, event.LaunchID)
	channel := a.ChannelFor(event.Project)

	_, err = adapter.Retry(ctx, a.backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()

		_, err := a.client.TxPipelined(attemptCtx, func(p goredis.Pipeliner) error {
			if a.config.KeyTTL > 0 {
				p.HSet(attemptCtx, key, outcomeFields(event, body))
				p.Expire(attemptCtx, key, a.config.KeyTTL)
			}
			p.Publish(attemptCtx, channel, body)
			return nil
		})
		if errors.Is(err, goredis.ErrClosed) {
			return adapter.Permanent(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("redis: launch %s: %w", event.LaunchID, err)
	}
	return nil
}

// outcomeFields are the hash fields of an outcome. A stop after a finish
// overwrites the status and keeps the latest event.
func outcomeFields(e *adapter.LaunchFinishedEvent, body []byte) map[string]any {
	return map[string]any{
		"status":     e.Status,
		"action":     e.Action(),
		"forced":     strconv.FormatBool(e.Forced),
		"launch_url": e.LaunchURL,
		"timestamp":  e.Timestamp,
		"event":      string(body),
	}
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
