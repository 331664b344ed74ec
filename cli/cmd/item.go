package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/rpreport/transport"
	"github.com/justapithecus/rpreport/types"
)

// SuiteCommand returns the suite command.
func SuiteCommand() *cli.Command {
	return &cli.Command{
		Name:  "suite",
		Usage: "Start or finish the root suite of the current launch",
		Subcommands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start the root suite",
				Flags: startFlags(),
				Action: func(c *cli.Context) error {
					return run(c, func(s *session) (*transport.Response, error) {
						return s.client.StartSuite(c.Context, c.String("name"), c.String("description"), c.StringSlice("tag"))
					})
				},
			},
			{
				Name:  "finish",
				Usage: "Finish the root suite (always PASSED)",
				Action: func(c *cli.Context) error {
					return run(c, func(s *session) (*transport.Response, error) {
						return s.client.FinishSuite(c.Context)
					})
				},
			},
		},
	}
}

// ItemCommand returns the item command for arbitrary items addressed by id.
func ItemCommand() *cli.Command {
	return &cli.Command{
		Name:  "item",
		Usage: "Start or finish an arbitrary test item",
		Subcommands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start an item under --parent (top level when omitted); prints the new id",
				Flags: append(startFlags(),
					&cli.StringFlag{Name: "parent", Usage: "Parent item id"},
					&cli.StringFlag{Name: "type", Usage: "Item type: SUITE, STORY, TEST, SCENARIO, STEP, BEFORE_CLASS, AFTER_CLASS, BEFORE_METHOD, AFTER_METHOD", Value: "TEST"},
				),
				Action: itemStartAction,
			},
			{
				Name:  "finish",
				Usage: "Finish the item with --id",
				Flags: append(finishFlags(),
					&cli.StringFlag{Name: "id", Usage: "Item id", Required: true},
				),
				Action: itemFinishAction,
			},
		},
	}
}

func itemStartAction(c *cli.Context) error {
	itemType, err := types.ParseItemType(c.String("type"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	return run(c, func(s *session) (*transport.Response, error) {
		return s.client.StartChildItem(c.Context, c.String("parent"), c.String("description"), c.String("name"), itemType, c.StringSlice("tag"))
	})
}

func itemFinishAction(c *cli.Context) error {
	status, err := parseStatus(c)
	if err != nil {
		return err
	}
	return run(c, func(s *session) (*transport.Response, error) {
		return s.client.FinishItem(c.Context, c.String("id"), status, c.String("description"))
	})
}

type (
	startFunc  func(ctx context.Context, name, description string, tags []string) (*transport.Response, error)
	finishFunc func(ctx context.Context, status types.ItemStatus, description string) (*transport.Response, error)
)

// levelCommand builds the start/finish pair for one tracked level.
func levelCommand(name, usage string, start func(*session) startFunc, finish func(*session) finishFunc) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Subcommands: []*cli.Command{
			{
				Name:  "start",
				Usage: fmt.Sprintf("Start a %s under the open parent", name),
				Flags: startFlags(),
				Action: func(c *cli.Context) error {
					return run(c, func(s *session) (*transport.Response, error) {
						return start(s)(c.Context, c.String("name"), c.String("description"), c.StringSlice("tag"))
					})
				},
			},
			{
				Name:  "finish",
				Usage: fmt.Sprintf("Finish the open %s", name),
				Flags: finishFlags(),
				Action: func(c *cli.Context) error {
					status, err := parseStatus(c)
					if err != nil {
						return err
					}
					return run(c, func(s *session) (*transport.Response, error) {
						return finish(s)(c.Context, status, c.String("description"))
					})
				},
			},
		},
	}
}

// FeatureCommand returns the feature (STORY) command.
func FeatureCommand() *cli.Command {
	return levelCommand("feature", "Start or finish a feature under the root suite",
		func(s *session) startFunc { return s.client.StartFeature },
		func(s *session) finishFunc { return s.client.FinishFeature })
}

// ScenarioCommand returns the scenario command.
func ScenarioCommand() *cli.Command {
	return levelCommand("scenario", "Start or finish a scenario under the open feature",
		func(s *session) startFunc { return s.client.StartScenario },
		func(s *session) finishFunc { return s.client.FinishScenario })
}

// StepCommand returns the step command.
func StepCommand() *cli.Command {
	return levelCommand("step", "Start or finish a step under the open scenario",
		func(s *session) startFunc { return s.client.StartStep },
		func(s *session) finishFunc { return s.client.FinishStep })
}

var (
	itemFlag = &cli.StringFlag{
		Name:  "item",
		Usage: "Item id (default: the running step)",
	}
	messageFlag = &cli.StringFlag{
		Name:     "message",
		Aliases:  []string{"m"},
		Usage:    "Log message",
		Required: true,
	}
	levelFlag = &cli.StringFlag{
		Name:  "level",
		Usage: "Log level: trace, debug, info, warn, error, fatal, unknown",
		Value: "info",
	}
)

// LogCommand returns the log command.
func LogCommand() *cli.Command {
	return &cli.Command{
		Name:   "log",
		Usage:  "Attach a log message to an item",
		Flags:  []cli.Flag{itemFlag, messageFlag, levelFlag},
		Action: logAction,
	}
}

func logAction(c *cli.Context) error {
	level, err := types.ParseLogLevel(c.String("level"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	return run(c, func(s *session) (*transport.Response, error) {
		return s.client.AddLogMessage(c.Context, targetItem(c, s), c.String("message"), level)
	})
}

// AttachCommand returns the attach command.
func AttachCommand() *cli.Command {
	return &cli.Command{
		Name:  "attach",
		Usage: "Attach an image to an item (skipped when no step is running)",
		Flags: []cli.Flag{
			itemFlag, messageFlag, levelFlag,
			&cli.StringFlag{Name: "file", Usage: "Path to the image", Required: true},
			&cli.StringFlag{Name: "type", Usage: "Image subtype, e.g. png (default: file extension)"},
		},
		Action: attachAction,
	}
}

func attachAction(c *cli.Context) error {
	level, err := types.ParseLogLevel(c.String("level"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	path := c.String("file")
	subtype := c.String("type")
	if subtype == "" {
		subtype = imageSubtype(path)
	}
	if subtype == "" {
		return cli.Exit(fmt.Sprintf("cannot infer image type of %s; use --type", path), exitUsage)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("read attachment: %v", err), exitUsage)
	}

	return run(c, func(s *session) (*transport.Response, error) {
		return s.client.AddLogMessageWithAttachment(c.Context, targetItem(c, s), c.String("message"), level, content, subtype)
	})
}

// targetItem is --item, or the running step when omitted.
func targetItem(c *cli.Context, s *session) string {
	if id := c.String("item"); id != "" {
		return id
	}
	return s.client.State().StepItemID
}

// imageSubtype maps a file extension to an image MIME subtype.
func imageSubtype(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "jpg":
		return "jpeg"
	case "svg":
		return "svg+xml"
	default:
		return ext
	}
}
