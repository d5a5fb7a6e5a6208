package agent

import (
	"context"
	"time"

	"github.com/jelly-fpga/fpgaload/types"
)

// timeoutAgent bounds every call with a deadline.
type timeoutAgent struct {
	next    Agent
	timeout time.Duration
}

// WithTimeout returns an Agent whose calls each run under a deadline of d.
// A non-positive d returns a unchanged.
func WithTimeout(a Agent, d time.Duration) Agent {
	if d <= 0 {
		return a
	}
	return &timeoutAgent{next: a, timeout: d}
}

func (t *timeoutAgent) UploadBytes(ctx context.Context, name string, data []byte) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.UploadBytes(ctx, name, data)
}

func (t *timeoutAgent) UploadFile(ctx context.Context, name, path string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.UploadFile(ctx, name, path)
}

func (t *timeoutAgent) Remove(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Remove(ctx, name)
}

func (t *timeoutAgent) ConvertBitstream(ctx context.Context, src, dst, platform string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ConvertBitstream(ctx, src, dst, platform)
}

func (t *timeoutAgent) ConvertSource(ctx context.Context, dts string) (bool, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ConvertSource(ctx, dts)
}

func (t *timeoutAgent) LoadBitstream(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.LoadBitstream(ctx, name)
}

func (t *timeoutAgent) LoadOverlay(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.LoadOverlay(ctx, name)
}

func (t *timeoutAgent) RegisterAccel(ctx context.Context, req types.RegisterRequest) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.RegisterAccel(ctx, req)
}

func (t *timeoutAgent) UnregisterAccel(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.UnregisterAccel(ctx, name)
}

func (t *timeoutAgent) LoadAccel(ctx context.Context, name string) (bool, int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.LoadAccel(ctx, name)
}

func (t *timeoutAgent) UnloadAccel(ctx context.Context, slot int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.UnloadAccel(ctx, slot)
}

var _ Agent = (*timeoutAgent)(nil)
