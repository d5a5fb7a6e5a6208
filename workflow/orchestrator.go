// Package workflow sequences remote agent calls for each fpgaload command.
//
// Every workflow is a straight line of steps ending in one terminal call
// (load, apply, or register). Artifacts uploaded along the way are
// recorded in a staging.Ledger, and the ledger is drained only after the
// terminal call succeeds. A failure at any step returns immediately and
// leaves everything already staged on the agent; no cleanup runs on the
// error path.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/jelly-fpga/fpgaload/agent"
	"github.com/jelly-fpga/fpgaload/artifact"
	"github.com/jelly-fpga/fpgaload/log"
	"github.com/jelly-fpga/fpgaload/metrics"
	"github.com/jelly-fpga/fpgaload/staging"
	"github.com/jelly-fpga/fpgaload/types"
)

// Config configures an Orchestrator.
type Config struct {
	// Agent is the remote agent (required).
	Agent agent.Agent
	// Store reads device-tree sources and writes converted overlays.
	// Defaults to the local filesystem.
	Store artifact.Store
	// Platform is the bitstream conversion platform tag.
	// Defaults to agent.DefaultPlatform.
	Platform string
	// Target is the agent address, copied into reports.
	Target string
	// Logger receives step-level entries. Defaults to a no-op logger.
	Logger *log.Logger
	// Collector counts remote operations. May be nil.
	Collector *metrics.Collector
}

// Orchestrator runs workflows against one agent.
// Each method call is an independent invocation with its own ledger.
type Orchestrator struct {
	agent     agent.Agent
	store     artifact.Store
	platform  string
	target    string
	logger    *log.Logger
	collector *metrics.Collector
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Agent == nil {
		return nil, errors.New("workflow: agent is required")
	}
	if cfg.Store == nil {
		cfg.Store = artifact.OSStore{}
	}
	if cfg.Platform == "" {
		cfg.Platform = agent.DefaultPlatform
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	return &Orchestrator{
		agent:     cfg.Agent,
		store:     cfg.Store,
		platform:  cfg.Platform,
		target:    cfg.Target,
		logger:    cfg.Logger,
		collector: cfg.Collector,
	}, nil
}

// invocation holds the state of one workflow run.
type invocation struct {
	o      *Orchestrator
	log    *log.Logger
	ledger *staging.Ledger
	report *types.Report
	start  time.Time
}

func (o *Orchestrator) begin(command string) *invocation {
	o.collector.IncWorkflowStarted()
	logger := o.logger.With(map[string]any{"workflow": command})
	logger.Info("workflow started", nil)
	return &invocation{
		o:      o,
		log:    logger,
		ledger: staging.NewLedger(),
		report: &types.Report{
			Command: command,
			Target:  o.target,
			Staged:  []string{},
			Removed: []string{},
		},
		start: time.Now(),
	}
}

// record notes a newly created remote artifact.
func (inv *invocation) record(name string) {
	inv.ledger.Record(name)
	inv.report.Staged = append(inv.report.Staged, name)
}

// fail classifies err, finalizes the report as a failure, and returns the
// classified error. Nothing staged is removed.
func (inv *invocation) fail(step, name string, err error) (*types.Report, error) {
	// Errors already attributed to a step (path resolution, local reads,
	// rejections) keep their attribution.
	var stepErr *types.StepError
	if !errors.As(err, &stepErr) {
		err = types.NewStepError(types.KindOf(err, types.ErrTransport), step, name, err)
	}
	inv.count(err)

	inv.report.Outcome = types.OutcomeFailure
	inv.report.Error = err.Error()
	inv.report.Step = types.StepOf(err)
	inv.report.DurationMs = time.Since(inv.start).Milliseconds()
	inv.o.collector.IncWorkflowFailed()

	fields := map[string]any{
		"step":  inv.report.Step,
		"error": err.Error(),
	}
	if orphans := inv.report.Orphaned(); len(orphans) > 0 {
		fields["left_staged"] = orphans
	}
	inv.log.Error("workflow failed", fields)
	return inv.report, err
}

// reject reports a call the agent answered with false.
func (inv *invocation) reject(step, name string) (*types.Report, error) {
	return inv.fail(step, name, types.Rejected(step, name))
}

func (inv *invocation) count(err error) {
	c := inv.o.collector
	switch {
	case errors.Is(err, types.ErrRemoteRejection):
		c.IncRemoteRejection()
	case errors.Is(err, types.ErrLocalIO):
		c.IncLocalIOError()
	case errors.Is(err, types.ErrTransport):
		c.IncTransportError()
	}
}

// commit drains the ledger after the terminal step succeeded.
// The returned error is the first cleanup failure, if any. It is not
// counted here; callers either fail with it or count it themselves.
func (inv *invocation) commit(ctx context.Context, mode staging.CleanupMode) error {
	if inv.ledger.Len() == 0 {
		return nil
	}
	res, err := inv.ledger.Drain(ctx, inv.o.agent, mode)
	inv.report.Removed = append(inv.report.Removed, res.Removed...)
	inv.o.collector.AddRemovals(len(res.Removed), len(res.Failed))

	inv.log.Info("staged artifacts removed", map[string]any{
		"mode":    mode.String(),
		"removed": res.Removed,
		"failed":  res.Failed,
		"skipped": res.Skipped,
	})
	return err
}

// succeed finalizes the report as a success.
func (inv *invocation) succeed() (*types.Report, error) {
	inv.report.Outcome = types.OutcomeSuccess
	inv.report.DurationMs = time.Since(inv.start).Milliseconds()
	inv.o.collector.IncWorkflowSucceeded()
	inv.log.Info("workflow completed", map[string]any{"duration_ms": inv.report.DurationMs})
	return inv.report, nil
}
