package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/justapithecus/rpreport/adapter"
	"github.com/justapithecus/rpreport/adapter/redis"
	"github.com/justapithecus/rpreport/adapter/webhook"
	"github.com/justapithecus/rpreport/cli/config"
	"github.com/justapithecus/rpreport/cli/render"
	"github.com/justapithecus/rpreport/journal"
	"github.com/justapithecus/rpreport/log"
	"github.com/justapithecus/rpreport/metrics"
	"github.com/justapithecus/rpreport/reporter"
	"github.com/justapithecus/rpreport/statefile"
	"github.com/justapithecus/rpreport/transport"
	"github.com/justapithecus/rpreport/types"
)

// Result is what every reporting command prints.
type Result struct {
	StatusCode int            `json:"status_code" yaml:"status_code"`
	Body       any            `json:"body,omitempty" yaml:"body,omitempty"`
	Skipped    bool           `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Recovered  *bool          `json:"recovered,omitempty" yaml:"recovered,omitempty"`
	State      reporter.State `json:"state" yaml:"state"`
}

// session is one CLI invocation: config, persisted state and a wired
// reporter client.
type session struct {
	cfg       *config.Config
	statePath string
	logger    *log.Logger
	collector *metrics.Collector
	transport *transport.Client
	journal   journal.Journal
	notifier  adapter.Adapter
	client    *reporter.Client
	renderer  *render.Renderer
}

// openSession loads config and state and builds the client.
// Config problems are returned as exit code 1.
func openSession(c *cli.Context) (*session, error) {
	r, err := render.NewRenderer(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid config: %v", err), exitUsage)
	}

	logger, err := log.NewLoggerAtLevel(cfg.ProjectName, c.App.ErrWriter, c.String("log-level"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}

	s := &session{
		cfg:       cfg,
		statePath: resolveStatePath(c, cfg),
		logger:    logger,
		collector: metrics.NewCollector(cfg.ProjectName),
		renderer:  r,
	}

	state, err := statefile.Load(s.statePath)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	if addressableLaunch(state.LaunchID) {
		s.logger = logger.WithLaunch(state.LaunchID)
	}

	s.transport, err = transport.New(transport.Config{
		Endpoint:             cfg.BaseURI(),
		Token:                cfg.UUID,
		Timeout:              cfg.Timeout.Duration,
		AllowHTTPErrorStatus: cfg.HTTPErrorsAllowed(),
		InsecureSkipVerify:   cfg.Insecure,
		UserAgent:            "rpreport/" + types.Version,
	})
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}

	opts := []reporter.Option{
		reporter.WithLogger(s.logger),
		reporter.WithCollector(s.collector),
		reporter.WithState(state),
		reporter.WithClock(now),
	}
	if s.journal, err = buildJournal(c, cfg); err != nil {
		_ = s.closeResources()
		return nil, cli.Exit(fmt.Sprintf("journal: %v", err), exitUsage)
	}
	if s.journal != nil {
		opts = append(opts, reporter.WithJournal(s.journal))
	}
	if s.notifier, err = buildNotifier(cfg.Notify); err != nil {
		_ = s.closeResources()
		return nil, cli.Exit(fmt.Sprintf("notify: %v", err), exitUsage)
	}
	if s.notifier != nil {
		opts = append(opts, reporter.WithNotifier(s.notifier))
	}

	s.client, err = reporter.New(reporter.Config{
		ProjectName: cfg.ProjectName,
		TimeZone:    cfg.TimeZone,
		HostName:    cfg.Host,
	}, s.transport, opts...)
	if err != nil {
		_ = s.closeResources()
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	return s, nil
}

func resolveStatePath(c *cli.Context, cfg *config.Config) string {
	if p := c.String("state"); p != "" {
		return p
	}
	if cfg.StateFile != "" {
		return cfg.StateFile
	}
	return statefile.DefaultPath
}

func buildJournal(c *cli.Context, cfg *config.Config) (journal.Journal, error) {
	jc := journal.Config{Dataset: cfg.Journal.Dataset, Project: cfg.ProjectName}
	switch cfg.Journal.Backend {
	case "":
		return nil, nil
	case config.JournalFS, config.JournalS3:
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Journal.Backend)
	}

	var (
		j   *journal.LodeJournal
		err error
	)
	if cfg.Journal.Backend == config.JournalFS {
		j, err = journal.NewFS(jc, cfg.Journal.Path)
	} else {
		bucket, prefix := journal.ParseS3Path(cfg.Journal.Path)
		j, err = journal.NewS3(c.Context, jc, journal.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Journal.Region,
			Endpoint:     cfg.Journal.Endpoint,
			UsePathStyle: cfg.Journal.S3PathStyle,
		})
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func buildNotifier(nc config.NotifyConfig) (adapter.Adapter, error) {
	retries := func(def int) int {
		if nc.Retries != nil {
			return *nc.Retries
		}
		return def
	}
	switch nc.Type {
	case "":
		return nil, nil
	case config.NotifyWebhook:
		a, err := webhook.New(webhook.Config{
			URL:     nc.URL,
			Headers: nc.Headers,
			Timeout: nc.Timeout.Duration,
			Retries: retries(webhook.DefaultRetries),
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.NotifyRedis:
		a, err := redis.New(redis.Config{
			URL:     nc.URL,
			Channel: nc.Channel,
			KeyTTL:  nc.KeyTTL.Duration,
			Timeout: nc.Timeout.Duration,
			Retries: retries(redis.DefaultRetries),
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown type %q", nc.Type)
	}
}

// close saves state and releases resources. A save failure is returned;
// close failures are logged.
func (s *session) close() error {
	saveErr := statefile.Save(s.statePath, s.client.State())

	snap := s.collector.Snapshot()
	s.logger.Debug("session finished", map[string]any{
		"requests_sent":    snap.RequestsSent,
		"request_failures": snap.RequestFailures,
		"http_errors":      snap.HTTPErrorStatuses,
		"journal_failures": snap.JournalFailures,
		"notify_failures":  snap.NotifyFailures,
	})

	if err := s.closeResources(); err != nil {
		s.logger.Warn("close failed", map[string]any{"error": err.Error()})
	}
	_ = s.logger.Sync()

	if saveErr != nil {
		return cli.Exit(fmt.Sprintf("save state: %v", saveErr), exitUsage)
	}
	return nil
}

func (s *session) closeResources() error {
	var err error
	if s.journal != nil {
		err = multierr.Append(err, s.journal.Close())
	}
	if s.notifier != nil {
		err = multierr.Append(err, s.notifier.Close())
	}
	if s.transport != nil {
		err = multierr.Append(err, s.transport.Close())
	}
	return err
}

// run opens a session, performs op, saves state and renders the result.
func run(c *cli.Context, op func(s *session) (*transport.Response, error)) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	resp, opErr := op(s)
	if err := s.close(); err != nil {
		return err
	}
	return s.finish(resp, opErr, nil)
}

// finish renders the outcome of a reporting call and maps it to an exit code.
func (s *session) finish(resp *transport.Response, opErr error, recovered *bool) error {
	var se *transport.StatusError
	if opErr != nil && !errors.As(opErr, &se) {
		if errors.Is(opErr, reporter.ErrMissingID) || errors.Is(opErr, reporter.ErrNotRunning) {
			return cli.Exit(opErr.Error(), exitUsage)
		}
		return opErr
	}

	res := Result{State: s.client.State(), Recovered: recovered}
	if resp == nil {
		res.Skipped = true
	} else {
		res.StatusCode = resp.StatusCode
		res.Body = decodeBody(resp)
	}
	if err := s.renderer.Render(res); err != nil {
		return err
	}

	switch {
	case recovered != nil && !*recovered:
		return cli.Exit("", exitRecovered)
	case resp != nil && !resp.OK() && recovered == nil:
		return cli.Exit("", exitHTTPError)
	default:
		return nil
	}
}

// decodeBody returns the body as decoded JSON, or as text when it is not JSON.
func decodeBody(resp *transport.Response) any {
	if resp == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	var v any
	if err := resp.Decode(&v); err != nil {
		return string(resp.Body)
	}
	return v
}

func addressableLaunch(id string) bool {
	return id != "" && id != types.EmptyID
}

func parseStatus(c *cli.Context) (types.ItemStatus, error) {
	st, err := types.ParseItemStatus(c.String("status"))
	if err != nil {
		return "", cli.Exit(err.Error(), exitUsage)
	}
	return st, nil
}

// now is swapped in tests.
var now = time.Now
