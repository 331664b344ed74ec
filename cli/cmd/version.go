package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/rpreport/cli/render"
	"github.com/justapithecus/rpreport/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version          string `json:"version" yaml:"version"`
	Commit           string `json:"commit" yaml:"commit"`
	StateFileVersion int    `json:"state_file_version" yaml:"state_file_version"`
}

// VersionCommand returns the version command. It reads no config.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			r, err := render.NewRenderer(c)
			if err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}
			return r.Render(VersionResponse{
				Version:          types.Version,
				Commit:           commit,
				StateFileVersion: types.StateFileVersion,
			})
		},
	}
}

// Commands returns every command of the rpreport binary.
func Commands(commit string) []*cli.Command {
	return []*cli.Command{
		LaunchCommand(),
		SuiteCommand(),
		FeatureCommand(),
		ScenarioCommand(),
		StepCommand(),
		ItemCommand(),
		LogCommand(),
		AttachCommand(),
		RecoverCommand(),
		StatusCommand(),
		VersionCommand(commit),
	}
}
