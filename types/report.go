package types

// Command names, shared by the CLI, reports, and notifications.
const (
	CommandBitDownload     = "bitdownload"
	CommandOverlay         = "overlay"
	CommandRegisterAccel   = "register-accel"
	CommandUnregisterAccel = "unregister-accel"
	CommandLoad            = "load"
	CommandUnload          = "unload"
	CommandDTS2DTBO        = "dts2dtbo"
)

// Outcome is the terminal status of a workflow invocation.
type Outcome string

const (
	// OutcomeSuccess means the terminal remote operation succeeded.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure means the workflow aborted before or at its terminal step.
	OutcomeFailure Outcome = "failure"
)

// Report summarizes one workflow invocation.
//
// Staged lists remote names in the order they were recorded. Removed lists
// the names whose removal succeeded. On failure Staged minus Removed is the
// set of artifacts left on the agent.
type Report struct {
	Command  string   `json:"command" yaml:"command"`
	Target   string   `json:"target,omitempty" yaml:"target,omitempty"`
	Outcome  Outcome  `json:"outcome" yaml:"outcome"`
	Staged   []string `json:"staged" yaml:"staged"`
	Removed  []string `json:"removed" yaml:"removed"`
	Accel    string   `json:"accel,omitempty" yaml:"accel,omitempty"`
	Slot     *int     `json:"slot,omitempty" yaml:"slot,omitempty"`
	Output   string   `json:"output,omitempty" yaml:"output,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
	Step     string   `json:"failed_step,omitempty" yaml:"failed_step,omitempty"`
	// CleanupError is set when a best-effort cleanup failed after the
	// terminal step succeeded. It does not change Outcome.
	CleanupError string `json:"cleanup_error,omitempty" yaml:"cleanup_error,omitempty"`
	DurationMs   int64  `json:"duration_ms" yaml:"duration_ms"`
}

// Orphaned returns staged names that were not removed.
func (r *Report) Orphaned() []string {
	removed := make(map[string]int, len(r.Removed))
	for _, name := range r.Removed {
		removed[name]++
	}
	var out []string
	for _, name := range r.Staged {
		if removed[name] > 0 {
			removed[name]--
			continue
		}
		out = append(out, name)
	}
	return out
}
