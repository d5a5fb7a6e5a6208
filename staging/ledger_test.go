package staging

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jelly-fpga/fpgaload/types"
)

// recordingRemover records every removal and fails the names in fail.
type recordingRemover struct {
	calls []string
	fail  map[string]error
}

func (r *recordingRemover) Remove(_ context.Context, name string) error {
	r.calls = append(r.calls, name)
	if err, ok := r.fail[name]; ok {
		return err
	}
	return nil
}

func TestLedger_RecordKeepsOrderAndDuplicates(t *testing.T) {
	l := NewLedger()
	l.Record("a.bit")
	l.Record("a.bit.bin")
	l.Record("a.bit")

	want := []string{"a.bit", "a.bit.bin", "a.bit"}
	if got := l.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
}

func TestLedger_EntriesIsCopy(t *testing.T) {
	l := NewLedger()
	l.Record("x")
	entries := l.Entries()
	entries[0] = "mutated"
	if l.Entries()[0] != "x" {
		t.Error("Entries() must not expose internal storage")
	}
}

func TestDrain_AllSucceed(t *testing.T) {
	for _, mode := range []CleanupMode{BestEffort, FailFast} {
		t.Run(mode.String(), func(t *testing.T) {
			l := NewLedger()
			for _, n := range []string{"design.bit", "design.bit.bin", "overlay.dtbo"} {
				l.Record(n)
			}
			r := &recordingRemover{}

			res, err := l.Drain(context.Background(), r, mode)
			if err != nil {
				t.Fatalf("Drain failed: %v", err)
			}
			want := []string{"design.bit", "design.bit.bin", "overlay.dtbo"}
			if !reflect.DeepEqual(r.calls, want) {
				t.Errorf("removals = %v, want %v", r.calls, want)
			}
			if !reflect.DeepEqual(res.Removed, want) {
				t.Errorf("Removed = %v, want %v", res.Removed, want)
			}
			if l.Len() != 0 {
				t.Errorf("ledger not empty after drain: %v", l.Entries())
			}
		})
	}
}

func TestDrain_BestEffortContinuesAfterFailure(t *testing.T) {
	first := errors.New("agent busy")
	second := errors.New("still busy")
	l := NewLedger()
	for _, n := range []string{"a", "b", "c", "d"} {
		l.Record(n)
	}
	r := &recordingRemover{fail: map[string]error{"b": first, "c": second}}

	res, err := l.Drain(context.Background(), r, BestEffort)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, first) {
		t.Errorf("expected first failure in chain, got %v", err)
	}
	if types.StepOf(err) != types.StepCleanup {
		t.Errorf("step = %q, want cleanup", types.StepOf(err))
	}
	if !reflect.DeepEqual(r.calls, []string{"a", "b", "c", "d"}) {
		t.Errorf("removals = %v, want all four", r.calls)
	}
	if !reflect.DeepEqual(res.Removed, []string{"a", "d"}) {
		t.Errorf("Removed = %v", res.Removed)
	}
	if !reflect.DeepEqual(res.Failed, []string{"b", "c"}) {
		t.Errorf("Failed = %v", res.Failed)
	}
	if len(res.Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", res.Skipped)
	}
}

func TestDrain_FailFastStops(t *testing.T) {
	l := NewLedger()
	for _, n := range []string{"a", "b", "c"} {
		l.Record(n)
	}
	r := &recordingRemover{fail: map[string]error{"b": types.NewStepError(types.ErrRemoteRejection, "remove", "b", nil)}}

	res, err := l.Drain(context.Background(), r, FailFast)
	if !errors.Is(err, types.ErrRemoteRejection) {
		t.Fatalf("expected rejection kind preserved, got %v", err)
	}
	if !reflect.DeepEqual(r.calls, []string{"a", "b"}) {
		t.Errorf("removals = %v, want [a b]", r.calls)
	}
	if !reflect.DeepEqual(res.Skipped, []string{"c"}) {
		t.Errorf("Skipped = %v, want [c]", res.Skipped)
	}
}

func TestDrain_UnclassifiedErrorIsTransport(t *testing.T) {
	l := NewLedger()
	l.Record("a")
	r := &recordingRemover{fail: map[string]error{"a": errors.New("connection reset")}}

	_, err := l.Drain(context.Background(), r, BestEffort)
	if !errors.Is(err, types.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestDrain_Empty(t *testing.T) {
	r := &recordingRemover{}
	res, err := NewLedger().Drain(context.Background(), r, BestEffort)
	if err != nil || len(r.calls) != 0 || len(res.Removed) != 0 {
		t.Errorf("empty drain: res=%+v err=%v calls=%v", res, err, r.calls)
	}
}
