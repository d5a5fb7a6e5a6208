// Package adapter publishes workflow completion notifications to
// downstream systems.
//
// The CLI builds one WorkflowCompletedEvent per invocation and hands it to
// the configured Adapter. Publishing is advisory: a failed publish is
// logged and never changes the command's exit status.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/jelly-fpga/fpgaload/types"
)

// EventType is the event_type of every published event.
const EventType = "workflow_completed"

// DefaultBackoff is the delay before the first retry. It doubles per retry.
const DefaultBackoff = 500 * time.Millisecond

// WorkflowCompletedEvent is the payload published when a workflow ends.
type WorkflowCompletedEvent struct {
	EventType    string   `json:"event_type"`
	Version      string   `json:"version"`
	InvocationID string   `json:"invocation_id"`
	Command      string   `json:"command"`
	Target       string   `json:"target"`
	Platform     string   `json:"platform,omitempty"`
	Outcome      string   `json:"outcome"`
	Accel        string   `json:"accel,omitempty"`
	Slot         *int     `json:"slot,omitempty"`
	Staged       []string `json:"staged"`
	Orphaned     []string `json:"orphaned,omitempty"`
	Error        string   `json:"error,omitempty"`
	FailedStep   string   `json:"failed_step,omitempty"`
	Timestamp    string   `json:"timestamp"` // RFC 3339, UTC
	DurationMs   int64    `json:"duration_ms"`
}

// NewEvent builds the event for report.
func NewEvent(report *types.Report, invocationID, platform string, at time.Time) *WorkflowCompletedEvent {
	return &WorkflowCompletedEvent{
		EventType:    EventType,
		Version:      types.Version,
		InvocationID: invocationID,
		Command:      report.Command,
		Target:       report.Target,
		Platform:     platform,
		Outcome:      string(report.Outcome),
		Accel:        report.Accel,
		Slot:         report.Slot,
		Staged:       report.Staged,
		Orphaned:     report.Orphaned(),
		Error:        report.Error,
		FailedStep:   report.Step,
		Timestamp:    at.UTC().Format(time.RFC3339),
		DurationMs:   report.DurationMs,
	}
}

// Adapter publishes workflow completion events.
type Adapter interface {
	// Publish delivers event. Must respect context cancellation.
	Publish(ctx context.Context, event *WorkflowCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Retry calls fn up to 1+retries times, sleeping backoff, 2*backoff, ...
// between attempts. It stops early when fn succeeds, when permanent
// reports the error as not worth retrying, or when ctx ends.
func Retry(ctx context.Context, retries int, backoff time.Duration, permanent func(error) bool, fn func(context.Context) error) error {
	var lastErr error
	attempts := 1 + retries

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff << uint(i-1)):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
