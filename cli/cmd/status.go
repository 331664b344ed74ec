package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/rpreport/cli/config"
	"github.com/justapithecus/rpreport/cli/render"
	"github.com/justapithecus/rpreport/reporter"
	"github.com/justapithecus/rpreport/statefile"
)

// StatusResponse is the output of the status command.
type StatusResponse struct {
	Project   string         `json:"project" yaml:"project"`
	Endpoint  string         `json:"endpoint" yaml:"endpoint"`
	StateFile string         `json:"state_file" yaml:"state_file"`
	Running   RunningLevels  `json:"running" yaml:"running"`
	State     reporter.State `json:"state" yaml:"state"`
}

// RunningLevels reports which levels have an open item.
type RunningLevels struct {
	Suite    bool `json:"suite" yaml:"suite"`
	Feature  bool `json:"feature" yaml:"feature"`
	Scenario bool `json:"scenario" yaml:"scenario"`
	Step     bool `json:"step" yaml:"step"`
}

// StatusCommand returns the status command. It never contacts the service.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the persisted run state",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reset", Usage: "Delete the state file, forgetting the current run"},
		},
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	path := resolveStatePath(c, cfg)

	if c.Bool("reset") {
		if err := statefile.Remove(path); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
	}
	state, err := statefile.Load(path)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	return r.Render(StatusResponse{
		Project:   cfg.ProjectName,
		Endpoint:  cfg.BaseURI(),
		StateFile: path,
		Running: RunningLevels{
			Suite:    state.IsSuiteRunning(),
			Feature:  state.IsFeatureRunning(),
			Scenario: state.IsScenarioRunning(),
			Step:     state.IsStepRunning(),
		},
		State: state,
	})
}
