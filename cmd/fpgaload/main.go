// Package main provides the fpgaload CLI entrypoint.
//
// Usage:
//
//	fpgaload <command> [options] [arguments]
//
// Exit codes:
//   - 0: success
//   - 1: workflow failure (agent rejection or local I/O error)
//   - 2: transport failure (agent unreachable or call failed)
//   - 3: invalid arguments or paths
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jelly-fpga/fpgaload/cli/cmd"
	"github.com/jelly-fpga/fpgaload/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "fpgaload",
		Usage:          "Stage, convert, and load FPGA configuration artifacts on a remote agent",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Flags:          cmd.GlobalFlags(),
		Commands:       cmd.Commands(commit),
	}

	if err := app.Run(os.Args); err != nil {
		// Only reached for errors ExitErrHandler did not exit on.
		os.Exit(1)
	}
}

// exitErrHandler prints the error and exits with the code carried by
// cli.Exit, or 1 for any other error.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	code, msg := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitStatus returns the exit code and the message to print for err.
// Messages of the form "exit status N" are suppressed.
func exitStatus(err error) (int, string) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return code, msg
	}
	return 1, fmt.Sprintf("Error: %v", err)
}
