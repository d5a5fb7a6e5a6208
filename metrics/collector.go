// Package metrics counts remote operations within one CLI invocation.
//
// The Collector is a leaf package with no internal dependencies. Counts
// are reported in the invocation's output when requested and are not
// exported anywhere else.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Workflow lifecycle
	WorkflowsStarted   int64 `json:"workflows_started" yaml:"workflows_started"`
	WorkflowsSucceeded int64 `json:"workflows_succeeded" yaml:"workflows_succeeded"`
	WorkflowsFailed    int64 `json:"workflows_failed" yaml:"workflows_failed"`

	// Staging
	Uploads       int64 `json:"uploads" yaml:"uploads"`
	UploadedBytes int64 `json:"uploaded_bytes" yaml:"uploaded_bytes"`
	Conversions   int64 `json:"conversions" yaml:"conversions"`

	// Cleanup
	Removals        int64 `json:"removals" yaml:"removals"`
	RemovalFailures int64 `json:"removal_failures" yaml:"removal_failures"`

	// Failures by kind
	RemoteRejections int64 `json:"remote_rejections" yaml:"remote_rejections"`
	TransportErrors  int64 `json:"transport_errors" yaml:"transport_errors"`
	LocalIOErrors    int64 `json:"local_io_errors" yaml:"local_io_errors"`

	// Dimensions (informational, set at construction)
	Command  string `json:"command" yaml:"command"`
	Target   string `json:"target" yaml:"target"`
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
}

// Collector accumulates counters.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	workflowsStarted   int64
	workflowsSucceeded int64
	workflowsFailed    int64

	uploads       int64
	uploadedBytes int64
	conversions   int64

	removals        int64
	removalFailures int64

	remoteRejections int64
	transportErrors  int64
	localIOErrors    int64

	command  string
	target   string
	platform string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(command, target, platform string) *Collector {
	return &Collector{
		command:  command,
		target:   target,
		platform: platform,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Workflow lifecycle ---

// IncWorkflowStarted records a workflow start.
func (c *Collector) IncWorkflowStarted() {
	if c == nil {
		return
	}
	c.add(&c.workflowsStarted, 1)
}

// IncWorkflowSucceeded records a workflow whose terminal step succeeded.
func (c *Collector) IncWorkflowSucceeded() {
	if c == nil {
		return
	}
	c.add(&c.workflowsSucceeded, 1)
}

// IncWorkflowFailed records an aborted workflow.
func (c *Collector) IncWorkflowFailed() {
	if c == nil {
		return
	}
	c.add(&c.workflowsFailed, 1)
}

// --- Staging ---

// AddUpload records one successful upload of n bytes.
// n is -1 when the size is unknown (file uploads).
func (c *Collector) AddUpload(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.uploads++
	if n > 0 {
		c.uploadedBytes += n
	}
	c.mu.Unlock()
}

// IncConversion records a successful remote conversion.
func (c *Collector) IncConversion() {
	if c == nil {
		return
	}
	c.add(&c.conversions, 1)
}

// --- Cleanup ---

// AddRemovals records succeeded and failed removals.
func (c *Collector) AddRemovals(succeeded, failed int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.removals += int64(succeeded)
	c.removalFailures += int64(failed)
	c.mu.Unlock()
}

// --- Failures ---

// IncRemoteRejection records a call the agent answered with false.
func (c *Collector) IncRemoteRejection() {
	if c == nil {
		return
	}
	c.add(&c.remoteRejections, 1)
}

// IncTransportError records a call that did not complete.
func (c *Collector) IncTransportError() {
	if c == nil {
		return
	}
	c.add(&c.transportErrors, 1)
}

// IncLocalIOError records a failed local read or write.
func (c *Collector) IncLocalIOError() {
	if c == nil {
		return
	}
	c.add(&c.localIOErrors, 1)
}

// --- Snapshot ---

// Snapshot returns a point-in-time copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		WorkflowsStarted:   c.workflowsStarted,
		WorkflowsSucceeded: c.workflowsSucceeded,
		WorkflowsFailed:    c.workflowsFailed,
		Uploads:            c.uploads,
		UploadedBytes:      c.uploadedBytes,
		Conversions:        c.conversions,
		Removals:           c.removals,
		RemovalFailures:    c.removalFailures,
		RemoteRejections:   c.remoteRejections,
		TransportErrors:    c.transportErrors,
		LocalIOErrors:      c.localIOErrors,
		Command:            c.command,
		Target:             c.target,
		Platform:           c.platform,
	}
}
