package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jelly-fpga/fpgaload/cli/config"
)

// options are the effective settings of one invocation.
// Flags set on the command line override the config file.
type options struct {
	target   string
	platform string
	timeout  time.Duration
	logLevel string
	stats    bool
	quiet    bool
	storage  config.StorageConfig
	notify   config.NotifyConfig
}

func resolveOptions(c *cli.Context) (*options, error) {
	cfg := &config.Config{}
	if path := flagContext(c, "config").String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	opts := &options{
		target:   pick(c, "ip", cfg.Target),
		platform: pick(c, "platform", cfg.Platform),
		logLevel: pick(c, "log-level", cfg.LogLevel),
		timeout:  cfg.Timeout.Duration,
		stats:    c.Bool("stats"),
		quiet:    c.Bool("quiet"),
		storage:  cfg.Storage,
		notify:   cfg.Notify,
	}
	if c.IsSet("timeout") || opts.timeout == 0 {
		opts.timeout = c.Duration("timeout")
	}
	if c.IsSet("notify-type") {
		opts.notify.Type = c.String("notify-type")
	}
	if c.IsSet("notify-url") {
		opts.notify.URL = c.String("notify-url")
	}

	merged := config.Config{Timeout: config.Duration{Duration: opts.timeout}, Notify: opts.notify}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return opts, nil
}

// pick returns the flag value when set explicitly, else the config value,
// else the flag default.
func pick(c *cli.Context, flag, fromConfig string) string {
	fc := flagContext(c, flag)
	if fc.IsSet(flag) || fromConfig == "" {
		return fc.String(flag)
	}
	return fromConfig
}

// flagContext returns the nearest context in c's lineage where flag was
// set, or c when it was set nowhere. Commands come before the app, so
// "fpgaload --ip a load --ip b acc" targets b.
func flagContext(c *cli.Context, flag string) *cli.Context {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(flag) {
			return ctx
		}
	}
	return c
}
