package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/jelly-fpga/fpgaload/types"
	"github.com/jelly-fpga/fpgaload/workflow"
)

// Commands returns every fpgaload command.
func Commands(commit string) []*cli.Command {
	return []*cli.Command{
		BitDownloadCommand(),
		OverlayCommand(),
		RegisterAccelCommand(),
		UnregisterAccelCommand(),
		LoadCommand(),
		UnloadCommand(),
		DTS2DTBOCommand(),
		VersionCommand(commit),
	}
}

// args returns exactly want positional arguments or an invalid-input exit.
func args(c *cli.Context, want int, names string) ([]string, error) {
	if c.NArg() != want {
		return nil, cli.Exit(fmt.Sprintf("%s: expected %s, got %d argument(s)", c.Command.Name, names, c.NArg()), exitInvalidInput)
	}
	return c.Args().Slice(), nil
}

// BitDownloadCommand uploads and programs a bitstream.
func BitDownloadCommand() *cli.Command {
	return &cli.Command{
		Name:      types.CommandBitDownload,
		Usage:     "Download a bitstream to the FPGA",
		ArgsUsage: "<bitstream>",
		Flags:     AgentFlags(),
		Action: func(c *cli.Context) error {
			a, err := args(c, 1, "<bitstream>")
			if err != nil {
				return err
			}
			return runWorkflow(c, types.CommandBitDownload, func(ctx context.Context, o *workflow.Orchestrator) (*types.Report, error) {
				return o.BitDownload(ctx, a[0])
			})
		},
	}
}

// OverlayCommand applies a device-tree overlay, optionally with an image.
func OverlayCommand() *cli.Command {
	flags := append(AgentFlags(),
		&cli.StringFlag{
			Name:    "bit",
			Aliases: []string{"b"},
			Usage:   "Bitstream to convert and stage with the overlay",
		},
		&cli.StringFlag{
			Name:  "bin",
			Usage: "Binary image to stage with the overlay",
		},
	)
	return &cli.Command{
		Name:      types.CommandOverlay,
		Usage:     "Apply a device-tree overlay (.dtbo or .dts)",
		ArgsUsage: "<overlay>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			a, err := args(c, 1, "<overlay>")
			if err != nil {
				return err
			}
			req := workflow.OverlayRequest{
				Overlay:   a[0],
				Bitstream: c.String("bit"),
				Image:     c.String("bin"),
			}
			return runWorkflow(c, types.CommandOverlay, func(ctx context.Context, o *workflow.Orchestrator) (*types.Report, error) {
				return o.Overlay(ctx, req)
			})
		},
	}
}

// RegisterAccelCommand registers an accelerator package.
func RegisterAccelCommand() *cli.Command {
	flags := append(AgentFlags(),
		&cli.StringFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Metadata file to include in the package",
		},
	)
	return &cli.Command{
		Name:      types.CommandRegisterAccel,
		Usage:     "Register an accelerator package",
		ArgsUsage: "<name> <overlay> <image>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			a, err := args(c, 3, "<name> <overlay> <image>")
			if err != nil {
				return err
			}
			req := workflow.RegisterAccelRequest{
				Name:     a[0],
				Overlay:  a[1],
				Image:    a[2],
				Metadata: c.String("json"),
			}
			return runWorkflow(c, types.CommandRegisterAccel, func(ctx context.Context, o *workflow.Orchestrator) (*types.Report, error) {
				return o.RegisterAccel(ctx, req)
			})
		},
	}
}

// UnregisterAccelCommand removes an accelerator package.
func UnregisterAccelCommand() *cli.Command {
	return &cli.Command{
		Name:      types.CommandUnregisterAccel,
		Usage:     "Unregister an accelerator package",
		ArgsUsage: "<name>",
		Flags:     AgentFlags(),
		Action: func(c *cli.Context) error {
			a, err := args(c, 1, "<name>")
			if err != nil {
				return err
			}
			return runWorkflow(c, types.CommandUnregisterAccel, func(ctx context.Context, o *workflow.Orchestrator) (*types.Report, error) {
				return o.UnregisterAccel(ctx, a[0])
			})
		},
	}
}

// LoadCommand loads an accelerator package into a slot.
func LoadCommand() *cli.Command {
	return &cli.Command{
		Name:      types.CommandLoad,
		Usage:     "Load an accelerator package",
		ArgsUsage: "<name>",
		Flags:     AgentFlags(),
		Action: func(c *cli.Context) error {
			a, err := args(c, 1, "<name>")
			if err != nil {
				return err
			}
			return runWorkflow(c, types.CommandLoad, func(ctx context.Context, o *workflow.Orchestrator) (*types.Report, error) {
				return o.LoadAccel(ctx, a[0])
			})
		},
	}
}

// UnloadCommand unloads the accelerator in a slot (default 0).
func UnloadCommand() *cli.Command {
	return &cli.Command{
		Name:      types.CommandUnload,
		Usage:     "Unload the accelerator in a slot",
		ArgsUsage: "[slot]",
		Flags:     AgentFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return cli.Exit("unload: expected at most one slot argument", exitInvalidInput)
			}
			slot := 0
			if c.NArg() == 1 {
				n, err := strconv.ParseInt(c.Args().First(), 10, 32)
				if err != nil {
					return cli.Exit(fmt.Sprintf("unload: invalid slot %q", c.Args().First()), exitInvalidInput)
				}
				slot = int(n)
			}
			return runWorkflow(c, types.CommandUnload, func(ctx context.Context, o *workflow.Orchestrator) (*types.Report, error) {
				return o.UnloadAccel(ctx, slot)
			})
		},
	}
}

// DTS2DTBOCommand compiles a device-tree source into an overlay file.
func DTS2DTBOCommand() *cli.Command {
	return &cli.Command{
		Name:      types.CommandDTS2DTBO,
		Usage:     "Compile a DTS file to a DTBO file on the agent",
		ArgsUsage: "<input.dts> <output.dtbo>",
		Flags:     AgentFlags(),
		Action: func(c *cli.Context) error {
			a, err := args(c, 2, "<input.dts> <output.dtbo>")
			if err != nil {
				return err
			}
			return runWorkflow(c, types.CommandDTS2DTBO, func(ctx context.Context, o *workflow.Orchestrator) (*types.Report, error) {
				return o.ConvertSource(ctx, a[0], a[1])
			})
		},
	}
}
