package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/rpreport/reporter"
	"github.com/justapithecus/rpreport/transport"
	"github.com/justapithecus/rpreport/types"
)

// LaunchCommand returns the launch command with start, finish and stop.
func LaunchCommand() *cli.Command {
	return &cli.Command{
		Name:  "launch",
		Usage: "Start, finish or stop a launch",
		Subcommands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start a launch (defaults come from the launch section of the config)",
				Flags: []cli.Flag{
					nameFlag,
					descriptionFlag,
					tagFlag,
					&cli.StringFlag{Name: "mode", Usage: "Launch mode: DEFAULT, DEBUG"},
				},
				Action: launchStartAction,
			},
			{
				Name:   "finish",
				Usage:  "Finish the current launch",
				Flags:  []cli.Flag{statusFlag("PASSED")},
				Action: launchFinishAction,
			},
			{
				Name:   "stop",
				Usage:  "Force-stop the current launch",
				Flags:  []cli.Flag{statusFlag("STOPPED")},
				Action: launchStopAction,
			},
		},
	}
}

func launchStartAction(c *cli.Context) error {
	return run(c, func(s *session) (*transport.Response, error) {
		lc := s.cfg.Launch
		name := firstNonEmpty(c.String("name"), lc.Name)
		if name == "" {
			return nil, cli.Exit("launch name is required (--name or launch.name)", exitUsage)
		}
		mode, err := types.ParseLaunchMode(firstNonEmpty(c.String("mode"), lc.Mode))
		if err != nil {
			return nil, cli.Exit(err.Error(), exitUsage)
		}
		tags := c.StringSlice("tag")
		if len(tags) == 0 {
			tags = lc.Tags
		}
		return s.client.StartLaunch(c.Context, name, firstNonEmpty(c.String("description"), lc.Description), mode, tags)
	})
}

func launchFinishAction(c *cli.Context) error {
	status, err := parseStatus(c)
	if err != nil {
		return err
	}
	return run(c, func(s *session) (*transport.Response, error) {
		return s.client.FinishLaunch(c.Context, status)
	})
}

func launchStopAction(c *cli.Context) error {
	status, err := parseStatus(c)
	if err != nil {
		return err
	}
	return run(c, func(s *session) (*transport.Response, error) {
		return s.client.ForceFinishLaunch(c.Context, status)
	})
}

// RecoverCommand returns the recover command: finish the launch and, if the
// service refuses because items are still open, cancel them and stop the
// launch.
func RecoverCommand() *cli.Command {
	return &cli.Command{
		Name:   "recover",
		Usage:  "Finish the launch, cancelling orphaned items on conflict (exit 3 when items were cancelled)",
		Flags:  []cli.Flag{statusFlag("PASSED")},
		Action: recoverAction,
	}
}

func recoverAction(c *cli.Context) error {
	status, err := parseStatus(c)
	if err != nil {
		return err
	}
	s, err := openSession(c)
	if err != nil {
		return err
	}

	resp, opErr := s.client.FinishLaunch(c.Context, status)
	var recovered *bool
	if resp != nil {
		if _, conflict := reporter.DetectConflict(resp.Body); conflict {
			ok, rerr := s.client.RecoverFromFinishConflict(c.Context, resp)
			recovered = &ok
			opErr = nil
			if rerr != nil {
				s.logger.Sugar().Warnf("recovery incomplete: %v", rerr)
			}
		}
	}

	if err := s.close(); err != nil {
		return err
	}
	return s.finish(resp, opErr, recovered)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
