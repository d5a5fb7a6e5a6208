// Package main provides fpgaload-agent-mock, an in-memory agent for
// exercising the fpgaload CLI without hardware.
//
// Usage:
//
//	fpgaload-agent-mock [--listen :8051] [--slots N] [--reject method]... [--fail method]...
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/jelly-fpga/fpgaload/agent"
	"github.com/jelly-fpga/fpgaload/agent/mock"
	"github.com/jelly-fpga/fpgaload/iox"
	"github.com/jelly-fpga/fpgaload/log"
	"github.com/jelly-fpga/fpgaload/types"
)

func main() {
	app := &cli.App{
		Name:    "fpgaload-agent-mock",
		Usage:   "Serve an in-memory FPGA agent over the fpgaload wire protocol",
		Version: types.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address",
				Value: ":8051",
			},
			&cli.IntFlag{
				Name:  "slots",
				Usage: "Number of accelerator slots",
				Value: 1,
			},
			&cli.StringSliceFlag{
				Name:  "reject",
				Usage: "Wire method that answers false (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "fail",
				Usage: "Wire method that returns an error (repeatable)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
				Value: "info",
			},
		},
		Action: serveAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveAction(c *cli.Context) error {
	level, err := log.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logger := log.NewLogger(log.Meta{Command: "agent-mock", Target: c.String("listen")}, level)
	defer iox.DiscardErr(logger.Sync)

	backend := mock.New(mock.Options{
		Slots:  c.Int("slots"),
		Reject: c.StringSlice("reject"),
		Fail:   c.StringSlice("fail"),
	})

	ln, err := net.Listen("tcp", c.String("listen"))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sugar := logger.Sugar()
	sugar.Infof("agent listening on %s with %d slot(s)", ln.Addr(), c.Int("slots"))
	if err := agent.NewServer(backend, logger).Serve(ctx, ln); err != nil {
		sugar.Errorf("agent stopped: %v", err)
		return err
	}
	sugar.With("firmware", backend.Firmware()).Infof("agent stopped")
	return nil
}
