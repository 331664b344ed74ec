// Package main provides the rpreport CLI entrypoint.
//
// Each invocation performs one reporting call against the test-management
// service and persists the run state for the next invocation.
//
// Usage:
//
//	rpreport [--config rpreport.yaml] [--state FILE] <command> [subcommand] [options]
//
// Exit codes:
//   - 0: success
//   - 1: usage, config or transport error
//   - 2: the service answered with an HTTP error status
//   - 3: a finish conflict was recovered by cancelling items
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/rpreport/cli/cmd"
	"github.com/justapithecus/rpreport/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "rpreport",
		Usage:          "Report test runs to a test-management service",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          cmd.GlobalFlags(),
		Commands:       cmd.Commands(commit),
		ExitErrHandler: exitErrHandler,
	}

	if err := app.Run(os.Args); err != nil {
		// Errors not routed through ExitErrHandler, e.g. flag parsing.
		os.Exit(1)
	}
}

// exitErrHandler prints the error, if any, and exits with its code.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(report(os.Stderr, err))
}

// report writes the message for err to w and returns the exit code.
// cli.Exit codes are preserved, including through wrapping; any other
// error exits 1.
func report(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		// cli.Exit("", N) renders as "exit status N"; stay quiet for those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(w, msg)
		}
		return code
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
