// Package agent defines the remote agent contract used by workflows and
// implements it over the msgpack wire protocol.
//
// Agent is what workflows call. Backend is what an agent implementation
// serves; Client implements Agent against a remote Backend, and Serve
// exposes a Backend to remote clients.
package agent

import (
	"context"
	"fmt"

	"github.com/jelly-fpga/fpgaload/types"
)

// DefaultPlatform is the platform tag for bitstream to image conversion.
const DefaultPlatform = "zynqmp"

// Backend is the set of operations an agent performs.
//
// Boolean results report logical success; a false result with a nil
// error means the agent rejected the request. A non-nil error means the
// call did not complete.
type Backend interface {
	// UploadBytes stores data under name.
	UploadBytes(ctx context.Context, name string, data []byte) (bool, error)
	// Remove deletes the artifact stored under name.
	Remove(ctx context.Context, name string) error
	// ConvertBitstream converts the bitstream src into a binary image dst.
	ConvertBitstream(ctx context.Context, src, dst, platform string) error
	// ConvertSource compiles device-tree source text into overlay bytes.
	ConvertSource(ctx context.Context, dts string) (bool, []byte, error)
	// LoadBitstream programs the fabric with the named bitstream.
	LoadBitstream(ctx context.Context, name string) error
	// LoadOverlay applies the named overlay.
	LoadOverlay(ctx context.Context, name string) (bool, error)
	// RegisterAccel registers an accelerator package.
	RegisterAccel(ctx context.Context, req types.RegisterRequest) error
	// UnregisterAccel removes an accelerator package.
	UnregisterAccel(ctx context.Context, name string) error
	// LoadAccel loads a package into a slot and returns the slot index.
	LoadAccel(ctx context.Context, name string) (bool, int, error)
	// UnloadAccel unloads whatever occupies slot.
	UnloadAccel(ctx context.Context, slot int) (bool, error)
}

// Agent is the façade workflows use. It adds uploading a local file,
// which a client performs by reading the file and calling UploadBytes.
type Agent interface {
	Backend
	// UploadFile reads path locally and stores its bytes under name.
	UploadFile(ctx context.Context, name, path string) (bool, error)
}

// CallError reports a remote call that did not complete.
// It matches types.ErrTransport under errors.Is.
type CallError struct {
	// Method is the wire method name.
	Method string
	// Err is the underlying failure.
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Is reports whether target is types.ErrTransport.
func (e *CallError) Is(target error) bool {
	return target == types.ErrTransport
}

// RemoteError is an error string reported by the agent in a response.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "agent: " + e.Message
}
