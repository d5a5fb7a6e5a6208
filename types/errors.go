package types

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying workflow failures.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrInvalidPath indicates a supplied path has no extractable file name.
	ErrInvalidPath = errors.New("invalid path")

	// ErrTransport indicates a remote call could not complete.
	ErrTransport = errors.New("transport error")

	// ErrRemoteRejection indicates a remote call completed but the agent
	// reported logical failure.
	ErrRemoteRejection = errors.New("rejected by agent")

	// ErrLocalIO indicates a local read or write failed.
	ErrLocalIO = errors.New("local I/O error")

	// ErrInvalidArgument indicates conflicting or malformed command inputs.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Step names identify which part of a workflow failed.
const (
	StepResolve    = "resolve"
	StepRead       = "read"
	StepWrite      = "write"
	StepUpload     = "upload"
	StepConvert    = "convert"
	StepLoad       = "load"
	StepUnload     = "unload"
	StepRegister   = "register"
	StepUnregister = "unregister"
	StepCleanup    = "cleanup"
)

// StepError wraps an underlying error with its classification and the
// workflow step that produced it. The original error stays in the chain.
type StepError struct {
	// Kind is the sentinel error for classification (e.g. ErrTransport).
	Kind error
	// Step is the workflow step that failed (e.g. "upload", "convert").
	Step string
	// Name is the artifact, accelerator, or path involved, if any.
	Name string
	// Err is the underlying error. May be nil for pure rejections.
	Err error
}

func (e *StepError) Error() string {
	msg := e.Step
	if e.Name != "" {
		msg = fmt.Sprintf("%s %s", e.Step, e.Name)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", msg, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", msg, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *StepError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewStepError creates a classified step error.
func NewStepError(kind error, step, name string, err error) *StepError {
	return &StepError{Kind: kind, Step: step, Name: name, Err: err}
}

// Rejected returns a StepError for a call the agent answered with false.
func Rejected(step, name string) *StepError {
	return &StepError{Kind: ErrRemoteRejection, Step: step, Name: name}
}

// StepOf returns the step name of the first StepError in err's chain,
// or "" if there is none.
func StepOf(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}

// KindOf returns the sentinel classifying err, or fallback when err carries
// none of the known kinds.
func KindOf(err, fallback error) error {
	for _, kind := range []error{ErrInvalidPath, ErrTransport, ErrRemoteRejection, ErrLocalIO, ErrInvalidArgument} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return fallback
}
