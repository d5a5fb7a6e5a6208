// Package staging tracks artifacts uploaded to the agent during one
// workflow invocation so they can be removed once the workflow commits.
//
// A Ledger is drained only after the workflow's terminal remote operation
// succeeds. Callers must not drain on error paths: artifacts staged by a
// failed invocation stay on the agent for the operator to inspect.
package staging

import (
	"context"
	"fmt"

	"github.com/jelly-fpga/fpgaload/types"
)

// CleanupMode selects how Drain reacts to a failed removal.
type CleanupMode int

const (
	// BestEffort attempts every removal and reports the first failure.
	BestEffort CleanupMode = iota
	// FailFast stops at the first failed removal.
	FailFast
)

func (m CleanupMode) String() string {
	switch m {
	case BestEffort:
		return "best_effort"
	case FailFast:
		return "fail_fast"
	default:
		return fmt.Sprintf("CleanupMode(%d)", int(m))
	}
}

// Remover deletes a named artifact from the agent.
type Remover interface {
	Remove(ctx context.Context, name string) error
}

// Ledger is an ordered record of remote artifact names.
// Not safe for concurrent use; one Ledger belongs to one invocation.
type Ledger struct {
	names []string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends name. Duplicates are kept and will be removed twice.
func (l *Ledger) Record(name string) {
	l.names = append(l.names, name)
}

// Entries returns a copy of the recorded names in insertion order.
func (l *Ledger) Entries() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Len returns the number of recorded names.
func (l *Ledger) Len() int {
	return len(l.names)
}

// DrainResult reports the outcome of a Drain.
type DrainResult struct {
	// Removed holds names whose removal succeeded, in call order.
	Removed []string
	// Failed holds names whose removal returned an error.
	Failed []string
	// Skipped holds names never attempted because FailFast stopped early.
	Skipped []string
}

// Drain issues one removal per recorded name in insertion order.
//
// In BestEffort mode every entry is attempted regardless of earlier
// failures; in FailFast mode the first failure ends the drain. Either way
// the returned error is the first removal failure, wrapped as a cleanup
// StepError, and is nil only if every attempted removal succeeded.
// The ledger is empty afterwards.
func (l *Ledger) Drain(ctx context.Context, r Remover, mode CleanupMode) (DrainResult, error) {
	var (
		result   DrainResult
		firstErr error
	)
	names := l.names
	l.names = nil

	for i, name := range names {
		if err := r.Remove(ctx, name); err != nil {
			result.Failed = append(result.Failed, name)
			if firstErr == nil {
				firstErr = types.NewStepError(types.KindOf(err, types.ErrTransport), types.StepCleanup, name, err)
			}
			if mode == FailFast {
				result.Skipped = append(result.Skipped, names[i+1:]...)
				break
			}
			continue
		}
		result.Removed = append(result.Removed, name)
	}
	return result, firstErr
}
