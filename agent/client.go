package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jelly-fpga/fpgaload/artifact"
	"github.com/jelly-fpga/fpgaload/ipc"
	"github.com/jelly-fpga/fpgaload/log"
	"github.com/jelly-fpga/fpgaload/types"
)

// DefaultTarget is the agent address used when none is configured.
const DefaultTarget = "127.0.0.1:8051"

// ClientOptions configures a Client.
type ClientOptions struct {
	// Store reads files for UploadFile. Defaults to the local filesystem.
	Store artifact.Store
	// Logger receives per-call debug entries. Defaults to a no-op logger.
	Logger *log.Logger
}

// Client implements Agent over one stream connection.
// Calls are serialized; one request is in flight at a time.
type Client struct {
	conn   net.Conn
	enc    *ipc.FrameEncoder
	dec    *ipc.FrameDecoder
	store  artifact.Store
	logger *log.Logger

	mu     sync.Mutex
	nextID uint64
	broken error
}

// NormalizeTarget strips a URL scheme from target ("http://host:port" and
// "tcp://host:port" both become "host:port").
func NormalizeTarget(target string) string {
	for _, scheme := range []string{"tcp://", "http://"} {
		if rest, ok := strings.CutPrefix(target, scheme); ok {
			return strings.TrimSuffix(rest, "/")
		}
	}
	return target
}

// Dial connects to the agent at target.
func Dial(ctx context.Context, target string, opts ClientOptions) (*Client, error) {
	addr := NormalizeTarget(target)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &CallError{Method: "dial", Err: err}
	}
	return NewClient(conn, opts), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn, opts ClientOptions) *Client {
	if opts.Store == nil {
		opts.Store = artifact.OSStore{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Client{
		conn:   conn,
		enc:    ipc.NewFrameEncoder(conn),
		dec:    ipc.NewFrameDecoder(conn),
		store:  opts.Store,
		logger: opts.Logger,
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call sends one request and decodes the response result into out.
// out may be nil for methods without a result.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken != nil {
		return &CallError{Method: method, Err: fmt.Errorf("connection unusable: %w", c.broken)}
	}
	if err := ctx.Err(); err != nil {
		return &CallError{Method: method, Err: err}
	}

	raw, err := ipc.EncodeBody(params)
	if err != nil {
		return &CallError{Method: method, Err: err}
	}
	c.nextID++
	req := &types.RequestFrame{
		Type:     types.RequestType,
		Protocol: types.ProtocolVersion,
		ID:       c.nextID,
		Method:   method,
		Params:   raw,
	}

	// Interrupt blocked reads and writes when ctx ends.
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	start := time.Now()
	resp, err := c.roundTrip(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		if !recoverable(ctx, err) {
			c.broken = err
		}
		return &CallError{Method: method, Err: err}
	}
	c.logger.Debug("agent call", map[string]any{
		"method":      method,
		"id":          req.ID,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.Error != "" {
		return &CallError{Method: method, Err: &RemoteError{Message: resp.Error}}
	}
	if out == nil {
		return nil
	}
	if len(resp.Result) == 0 {
		return &CallError{Method: method, Err: errors.New("response has no result")}
	}
	if err := ipc.DecodeBody(resp.Result, out); err != nil {
		return &CallError{Method: method, Err: err}
	}
	return nil
}

func (c *Client) roundTrip(req *types.RequestFrame) (*types.ResponseFrame, error) {
	if err := c.enc.WriteFrame(req); err != nil {
		return nil, err
	}
	payload, err := c.dec.ReadFrame()
	if err != nil {
		return nil, err
	}
	frame, err := ipc.DecodeFrame(payload)
	if err != nil {
		return nil, err
	}
	resp, ok := frame.(*types.ResponseFrame)
	if !ok {
		return nil, &ipc.FrameError{Kind: ipc.FrameErrorDecode, Msg: "agent sent a request frame"}
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %d does not match request id %d", resp.ID, req.ID)
	}
	return resp, nil
}

// recoverable reports whether the connection survives a failed round trip.
// Only an undecodable reply is recoverable: the whole frame was consumed,
// so the next request starts on a frame boundary. Any other failure leaves
// the stream position unknown.
func recoverable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || ipc.IsFatalFrameError(err) {
		return false
	}
	var frameErr *ipc.FrameError
	return errors.As(err, &frameErr)
}

// UploadBytes stores data under name on the agent.
func (c *Client) UploadBytes(ctx context.Context, name string, data []byte) (bool, error) {
	var res types.BoolResult
	err := c.call(ctx, types.MethodUploadFirmware, types.UploadParams{Name: name, Data: data}, &res)
	return res.Success, err
}

// UploadFile reads path through the client's store and uploads it as name.
// Read failures keep their local I/O classification.
func (c *Client) UploadFile(ctx context.Context, name, path string) (bool, error) {
	data, err := c.store.ReadFile(ctx, path)
	if err != nil {
		return false, err
	}
	return c.UploadBytes(ctx, name, data)
}

// Remove deletes name from the agent.
func (c *Client) Remove(ctx context.Context, name string) error {
	return c.call(ctx, types.MethodRemoveFirmware, types.NameParams{Name: name}, nil)
}

// ConvertBitstream asks the agent to convert src into the binary image dst.
func (c *Client) ConvertBitstream(ctx context.Context, src, dst, platform string) error {
	return c.call(ctx, types.MethodBitstreamToBin, types.BitstreamToBinParams{
		BitstreamName: src,
		BinName:       dst,
		Arch:          platform,
	}, nil)
}

// ConvertSource compiles dts on the agent and returns the overlay bytes.
func (c *Client) ConvertSource(ctx context.Context, dts string) (bool, []byte, error) {
	var res types.DTBResult
	err := c.call(ctx, types.MethodDTSToDTB, types.DTSParams{DTS: dts}, &res)
	return res.Success, res.DTB, err
}

// LoadBitstream programs the fabric with name.
func (c *Client) LoadBitstream(ctx context.Context, name string) error {
	return c.call(ctx, types.MethodLoadBitstream, types.NameParams{Name: name}, nil)
}

// LoadOverlay applies the overlay name.
func (c *Client) LoadOverlay(ctx context.Context, name string) (bool, error) {
	var res types.BoolResult
	err := c.call(ctx, types.MethodLoadDTBO, types.NameParams{Name: name}, &res)
	return res.Success, err
}

// RegisterAccel registers an accelerator package.
func (c *Client) RegisterAccel(ctx context.Context, req types.RegisterRequest) error {
	return c.call(ctx, types.MethodRegisterAccel, req, nil)
}

// UnregisterAccel removes an accelerator package.
func (c *Client) UnregisterAccel(ctx context.Context, name string) error {
	return c.call(ctx, types.MethodUnregisterAccel, types.NameParams{Name: name}, nil)
}

// LoadAccel loads the package name and returns its slot.
func (c *Client) LoadAccel(ctx context.Context, name string) (bool, int, error) {
	var res types.LoadResult
	err := c.call(ctx, types.MethodLoad, types.NameParams{Name: name}, &res)
	return res.Success, res.Slot, err
}

// UnloadAccel unloads slot.
func (c *Client) UnloadAccel(ctx context.Context, slot int) (bool, error) {
	var res types.BoolResult
	err := c.call(ctx, types.MethodUnload, types.SlotParams{Slot: slot}, &res)
	return res.Success, err
}

var _ Agent = (*Client)(nil)
