package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justapithecus/rpreport/types"
)

// Config is the rpreport.yaml document. Key names follow the service's
// own client configuration (UUID, host, projectName, timeZone).
type Config struct {
	UUID            string        `yaml:"UUID"`
	Host            string        `yaml:"host"`
	ProjectName     string        `yaml:"projectName"`
	TimeZone        string        `yaml:"timeZone"`
	Timeout         Duration      `yaml:"timeout"`
	AllowHTTPErrors *bool         `yaml:"allowHTTPErrors"`
	Insecure        bool          `yaml:"insecure"`
	Launch          LaunchConfig  `yaml:"launch"`
	Journal         JournalConfig `yaml:"journal"`
	Notify          NotifyConfig  `yaml:"notify"`
	StateFile       string        `yaml:"state_file"`
}

// LaunchConfig holds defaults for "launch start".
type LaunchConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Mode        string   `yaml:"mode"`
	Tags        []string `yaml:"tags"`
}

// JournalConfig selects where the request journal is written.
// An empty backend disables the journal.
type JournalConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	Dataset     string `yaml:"dataset"`
}

// NotifyConfig configures the launch-finished notifier.
// An empty type disables notifications. KeyTTL applies to redis only: how
// long the per-launch outcome hash is kept (negative disables it).
type NotifyConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
	KeyTTL  Duration          `yaml:"key_ttl,omitempty"`
}

// Journal backends.
const (
	JournalFS = "fs"
	JournalS3 = "s3"
)

// Notifier types.
const (
	NotifyWebhook = "webhook"
	NotifyRedis   = "redis"
)

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.String(), nil
}

// BaseURI is the API root requests are resolved against: "{host}/api/".
func (c *Config) BaseURI() string {
	return strings.TrimRight(c.Host, "/") + "/api/"
}

// HTTPErrorsAllowed reports whether 4xx/5xx responses are returned as
// ordinary responses. Defaults to true.
func (c *Config) HTTPErrorsAllowed() bool {
	return c.AllowHTTPErrors == nil || *c.AllowHTTPErrors
}

// Validate checks required keys and enumerated values.
func (c *Config) Validate() error {
	var missing []string
	if c.UUID == "" {
		missing = append(missing, "UUID")
	}
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.ProjectName == "" {
		missing = append(missing, "projectName")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config keys: %s", strings.Join(missing, ", "))
	}

	if !strings.HasPrefix(c.Host, "http://") && !strings.HasPrefix(c.Host, "https://") {
		return fmt.Errorf("host must start with http:// or https://, got %q", c.Host)
	}
	if c.Timeout.Duration < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.Launch.Mode != "" {
		if _, err := types.ParseLaunchMode(c.Launch.Mode); err != nil {
			return fmt.Errorf("launch.mode: %w", err)
		}
	}

	switch c.Journal.Backend {
	case "":
	case JournalFS, JournalS3:
		if c.Journal.Path == "" {
			return fmt.Errorf("journal.path is required for backend %q", c.Journal.Backend)
		}
	default:
		return fmt.Errorf("journal.backend must be %q or %q, got %q", JournalFS, JournalS3, c.Journal.Backend)
	}

	switch c.Notify.Type {
	case "":
	case NotifyWebhook, NotifyRedis:
		if c.Notify.URL == "" {
			return fmt.Errorf("notify.url is required for type %q", c.Notify.Type)
		}
		if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
			return errors.New("notify.retries must not be negative")
		}
	default:
		return fmt.Errorf("notify.type must be %q or %q, got %q", NotifyWebhook, NotifyRedis, c.Notify.Type)
	}
	return nil
}
