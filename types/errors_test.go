package types //nolint:revive // types is a valid package name

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestStepError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *StepError
		want string
	}{
		{
			name: "rejection without cause",
			err:  Rejected(StepLoad, "acc"),
			want: "load acc: rejected by agent",
		},
		{
			name: "with cause",
			err:  NewStepError(ErrTransport, StepUpload, "design.bit", errors.New("connection reset")),
			want: "upload design.bit: transport error: connection reset",
		},
		{
			name: "no name",
			err:  NewStepError(ErrInvalidArgument, StepResolve, "", errors.New("--bit and --bin are exclusive")),
			want: "resolve: invalid argument: --bit and --bin are exclusive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStepError_Chain(t *testing.T) {
	err := fmt.Errorf("bitdownload: %w", NewStepError(ErrLocalIO, StepRead, "design.bit", fs.ErrNotExist))

	if !errors.Is(err, ErrLocalIO) {
		t.Error("errors.Is(err, ErrLocalIO) = false")
	}
	if errors.Is(err, ErrTransport) {
		t.Error("errors.Is(err, ErrTransport) = true")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("underlying cause lost from chain")
	}
	if got := StepOf(err); got != StepRead {
		t.Errorf("StepOf = %q, want %q", got, StepRead)
	}
}

func TestKindOf(t *testing.T) {
	fallback := errors.New("fallback")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rejection", Rejected(StepUnload, "slot 0"), ErrRemoteRejection},
		{"wrapped transport", fmt.Errorf("dial: %w", ErrTransport), ErrTransport},
		{"invalid path", NewStepError(ErrInvalidPath, StepResolve, "/", nil), ErrInvalidPath},
		{"unclassified", errors.New("boom"), fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err, fallback); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStepOf_NoStepError(t *testing.T) {
	if got := StepOf(errors.New("plain")); got != "" {
		t.Errorf("StepOf = %q, want empty", got)
	}
}
