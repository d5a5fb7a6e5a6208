package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jelly-fpga/fpgaload/adapter"
	"github.com/jelly-fpga/fpgaload/adapter/redis"
	"github.com/jelly-fpga/fpgaload/adapter/webhook"
	"github.com/jelly-fpga/fpgaload/agent"
	"github.com/jelly-fpga/fpgaload/artifact"
	"github.com/jelly-fpga/fpgaload/cli/config"
	"github.com/jelly-fpga/fpgaload/cli/render"
	"github.com/jelly-fpga/fpgaload/iox"
	"github.com/jelly-fpga/fpgaload/log"
	"github.com/jelly-fpga/fpgaload/metrics"
	"github.com/jelly-fpga/fpgaload/types"
	"github.com/jelly-fpga/fpgaload/workflow"
)

// notifyDeadline bounds publishing, retries included.
const notifyDeadline = 30 * time.Second

// session holds everything one workflow command needs.
type session struct {
	ctx          context.Context
	cancel       context.CancelFunc
	opts         *options
	invocationID string
	logger       *log.Logger
	collector    *metrics.Collector
	renderer     *render.Renderer
	client       *agent.Client
	orch         *workflow.Orchestrator
}

// runWorkflow opens a session for command, runs fn, and reports the result.
func runWorkflow(c *cli.Context, command string, fn func(ctx context.Context, o *workflow.Orchestrator) (*types.Report, error)) error {
	s, err := openSession(c, command)
	if err != nil {
		return err
	}
	defer s.close()

	report, err := fn(s.ctx, s.orch)
	return s.finish(report, err)
}

func openSession(c *cli.Context, command string) (*session, error) {
	opts, err := resolveOptions(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitInvalidInput)
	}
	level, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitInvalidInput)
	}
	renderer, err := render.NewRenderer(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitInvalidInput)
	}

	target := agent.NormalizeTarget(opts.target)
	invocationID := log.NewInvocationID()
	logger := log.NewLoggerWithWriter(log.Meta{
		Command:      command,
		Target:       target,
		InvocationID: invocationID,
	}, level, c.App.ErrWriter)

	ctx, cancel := context.WithCancel(c.Context)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("interrupted", nil)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	store := artifact.NewMuxStore(artifact.NewS3Store(artifact.S3Config{
		Region:       opts.storage.Region,
		Endpoint:     opts.storage.Endpoint,
		UsePathStyle: opts.storage.S3PathStyle,
	}))

	dialCtx := ctx
	if opts.timeout > 0 {
		var dialCancel context.CancelFunc
		dialCtx, dialCancel = context.WithTimeout(ctx, opts.timeout)
		defer dialCancel()
	}
	client, err := agent.Dial(dialCtx, target, agent.ClientOptions{Store: store, Logger: logger})
	if err != nil {
		cancel()
		logger.Error("cannot connect to agent", map[string]any{"error": err.Error()})
		iox.DiscardErr(logger.Sync)
		return nil, cli.Exit(fmt.Sprintf("cannot connect to agent at %s: %v", target, err), exitTransport)
	}

	collector := metrics.NewCollector(command, target, opts.platform)
	orch, err := workflow.New(workflow.Config{
		Agent:     agent.WithTimeout(client, opts.timeout),
		Store:     store,
		Platform:  opts.platform,
		Target:    target,
		Logger:    logger,
		Collector: collector,
	})
	if err != nil {
		cancel()
		iox.DiscardClose(client)
		return nil, err
	}

	return &session{
		ctx:          ctx,
		cancel:       cancel,
		opts:         opts,
		invocationID: invocationID,
		logger:       logger,
		collector:    collector,
		renderer:     renderer,
		client:       client,
		orch:         orch,
	}, nil
}

func (s *session) close() {
	s.cancel()
	iox.DiscardClose(s.client)
	iox.DiscardErr(s.logger.Sync)
}

// finish renders the report, publishes the notification, and converts
// err into a cli exit error.
func (s *session) finish(report *types.Report, err error) error {
	if !s.opts.quiet && report != nil {
		if renderErr := s.emit(report); renderErr != nil {
			s.logger.Warn("cannot render report", map[string]any{"error": renderErr.Error()})
		}
	}
	if report != nil {
		s.notify(report)
	}
	if err != nil {
		return cli.Exit(err.Error(), exitCode(err))
	}
	return nil
}

// reportWithStats is the json/yaml shape of a report followed by --stats.
type reportWithStats struct {
	Report *types.Report    `json:"report" yaml:"report"`
	Stats  metrics.Snapshot `json:"stats" yaml:"stats"`
}

func (s *session) emit(report *types.Report) error {
	if !s.opts.stats {
		return s.renderer.RenderReport(report)
	}
	if s.renderer.Format() != render.FormatTable {
		return s.renderer.Render(reportWithStats{Report: report, Stats: s.collector.Snapshot()})
	}
	if err := s.renderer.RenderReport(report); err != nil {
		return err
	}
	return s.renderer.Render(s.collector.Snapshot())
}

// notify publishes the completion event. Failures are logged only.
func (s *session) notify(report *types.Report) {
	if s.opts.notify.Type == "" {
		return
	}
	a, err := newAdapter(s.opts.notify)
	if err != nil {
		s.logger.Warn("notification disabled", map[string]any{"error": err.Error()})
		return
	}
	defer iox.DiscardClose(a)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), notifyDeadline)
	defer cancel()

	event := adapter.NewEvent(report, s.invocationID, s.opts.platform, time.Now())
	if err := a.Publish(ctx, event); err != nil {
		s.logger.Warn("notification failed", map[string]any{
			"type":  s.opts.notify.Type,
			"error": err.Error(),
		})
		return
	}
	s.logger.Info("notification published", map[string]any{"type": s.opts.notify.Type})
}

func newAdapter(cfg config.NotifyConfig) (adapter.Adapter, error) {
	retries := webhook.DefaultRetries
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}
	switch cfg.Type {
	case config.NotifyWebhook:
		return webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	case config.NotifyRedis:
		return redis.New(redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown notification type %q", cfg.Type)
	}
}
