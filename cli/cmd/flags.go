// Package cmd provides the commands of the fpgaload binary.
package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/jelly-fpga/fpgaload/agent"
	"github.com/jelly-fpga/fpgaload/types"
)

// Exit codes.
const (
	exitSuccess      = 0
	exitFailure      = 1 // remote rejection or local I/O failure
	exitTransport    = 2
	exitInvalidInput = 3
)

// exitCode maps a workflow error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrInvalidPath), errors.Is(err, types.ErrInvalidArgument):
		return exitInvalidInput
	case errors.Is(err, types.ErrTransport):
		return exitTransport
	default:
		return exitFailure
	}
}

// Output flags shared by every command.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// QuietFlag suppresses the report.
	QuietFlag = &cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		Usage:   "Suppress report output; errors are still printed",
	}
)

// OutputFlags returns the flags for commands that do not contact the agent.
func OutputFlags() []cli.Flag {
	return []cli.Flag{FormatFlag, NoColorFlag}
}

// GlobalFlags returns the app-level flags. They may also be given after
// the command name; the command-level value wins when both are set.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{configFlag(), targetFlag()}
}

// AgentFlags returns the flags for commands that run a workflow.
func AgentFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		targetFlag(),
		&cli.StringFlag{
			Name:  "platform",
			Usage: "Platform tag for bitstream conversion",
			Value: agent.DefaultPlatform,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Deadline for each remote call (0 = none)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: "warn",
		},
		&cli.BoolFlag{
			Name:  "stats",
			Usage: "Print call statistics after the report",
		},
		&cli.StringFlag{
			Name:  "notify-type",
			Usage: "Completion notification: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "notify-url",
			Usage: "Webhook URL or redis:// URL for completion notifications",
		},
		FormatFlag,
		NoColorFlag,
		QuietFlag,
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to fpgaload.yaml",
		EnvVars: []string{"FPGALOAD_CONFIG"},
	}
}

func targetFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "ip",
		Aliases: []string{"i", "target"},
		Usage:   "Agent address (host:port)",
		Value:   agent.DefaultTarget,
		EnvVars: []string{"FPGALOAD_TARGET"},
	}
}
