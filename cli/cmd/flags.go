// Package cmd provides CLI commands for the rpreport binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/rpreport/cli/config"
	"github.com/justapithecus/rpreport/statefile"
)

// Exit codes.
const (
	exitOK        = 0
	exitUsage     = 1
	exitHTTPError = 2
	exitRecovered = 3
)

// Global flags shared by every command.
var (
	// ConfigFlag points at the YAML config file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
		Value:   config.DefaultPath,
		EnvVars: []string{"RPREPORT_CONFIG"},
	}

	// StateFlag overrides state_file from the config.
	StateFlag = &cli.StringFlag{
		Name:    "state",
		Usage:   "Path to the run state file (default: state_file from config, then " + statefile.DefaultPath + ")",
		EnvVars: []string{"RPREPORT_STATE"},
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// LogLevelFlag sets the minimum level of diagnostic logs on stderr.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Diagnostic log level: debug, info, warn, error",
		Value: "warn",
	}
)

// GlobalFlags returns the flags every command accepts.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		StateFlag,
		FormatFlag,
		LogLevelFlag,
	}
}

var (
	nameFlag = &cli.StringFlag{
		Name:  "name",
		Usage: "Item name",
	}
	descriptionFlag = &cli.StringFlag{
		Name:  "description",
		Usage: "Item description",
	}
	tagFlag = &cli.StringSliceFlag{
		Name:  "tag",
		Usage: "Tag (repeatable)",
	}
)

func statusFlag(def string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "status",
		Usage: "Status: PASSED, FAILED, STOPPED, SKIPPED, CANCELLED, INTERRUPTED, INFO, WARN",
		Value: def,
	}
}

// startFlags are the flags of every "<level> start" command.
func startFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Item name", Required: true},
		descriptionFlag,
		tagFlag,
	}
}

// finishFlags are the flags of every "<level> finish" command.
func finishFlags() []cli.Flag {
	return []cli.Flag{
		statusFlag("PASSED"),
		descriptionFlag,
	}
}
