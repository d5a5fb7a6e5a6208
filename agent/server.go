package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/jelly-fpga/fpgaload/iox"
	"github.com/jelly-fpga/fpgaload/ipc"
	"github.com/jelly-fpga/fpgaload/log"
	"github.com/jelly-fpga/fpgaload/types"
)

// Server exposes a Backend over the wire protocol.
type Server struct {
	backend Backend
	logger  *log.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer creates a server for backend. A nil logger discards output.
func NewServer(backend Backend, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Nop()
	}
	return &Server{
		backend: backend,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections on ln until ctx ends or ln fails.
// Open connections are closed and drained before Serve returns.
// Returns nil when stopped by ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	defer func() {
		s.mu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()
		s.wg.Wait()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
			}()
			s.ServeConn(ctx, conn)
		}()
	}
}

// ServeConn handles requests on one connection until it closes or a
// fatal frame error desynchronizes the stream.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	defer iox.DiscardClose(conn)

	dec := ipc.NewFrameDecoder(conn)
	enc := ipc.NewFrameEncoder(conn)
	remote := conn.RemoteAddr().String()

	for {
		payload, err := dec.ReadFrame()
		if err != nil {
			if ipc.IsFatalFrameError(err) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("stream desynchronized, closing connection", map[string]any{"remote": remote, "error": err.Error()})
			}
			return
		}

		resp := s.handle(ctx, payload)
		if err := enc.WriteFrame(resp); err != nil {
			s.logger.Warn("connection write failed", map[string]any{"remote": remote, "error": err.Error()})
			return
		}
	}
}

// handle decodes and dispatches one request payload.
func (s *Server) handle(ctx context.Context, payload []byte) *types.ResponseFrame {
	frame, err := ipc.DecodeFrame(payload)
	if err != nil {
		return &types.ResponseFrame{Type: types.ResponseType, Error: err.Error()}
	}
	req, ok := frame.(*types.RequestFrame)
	if !ok {
		return &types.ResponseFrame{Type: types.ResponseType, Error: "expected a request frame"}
	}
	resp := &types.ResponseFrame{Type: types.ResponseType, ID: req.ID}
	if req.Protocol != types.ProtocolVersion {
		resp.Error = fmt.Sprintf("unsupported protocol version %d, agent speaks %d", req.Protocol, types.ProtocolVersion)
		return resp
	}

	result, err := s.dispatch(ctx, req)
	if err != nil {
		s.logger.Info("request failed", map[string]any{"method": req.Method, "id": req.ID, "error": err.Error()})
		resp.Error = err.Error()
		return resp
	}
	if result != nil {
		raw, err := ipc.EncodeBody(result)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.Result = raw
	}
	s.logger.Debug("request served", map[string]any{"method": req.Method, "id": req.ID})
	return resp
}

// dispatch invokes the backend method named by req.
// A nil result means the method has no result payload.
func (s *Server) dispatch(ctx context.Context, req *types.RequestFrame) (any, error) {
	b := s.backend
	switch req.Method {
	case types.MethodUploadFirmware:
		var p types.UploadParams
		if err := ipc.DecodeBody(req.Params, &p); err != nil {
			return nil, err
		}
		ok, err := b.UploadBytes(ctx, p.Name, p.Data)
		return types.BoolResult{Success: ok}, err

	case types.MethodRemoveFirmware:
		var p types.NameParams
		if err := ipc.DecodeBody(req.Params, &p); err != nil {
			return nil, err
		}
		return nil, b.Remove(ctx, p.Name)

	case types.MethodBitstreamToBin:
		var p types.BitstreamToBinParams
		if err := ipc.DecodeBody(req.Params, &p); err != nil {
			return nil, err
		}
		return nil, b.ConvertBitstream(ctx, p.BitstreamName, p.BinName, p.Arch)

	case types.MethodDTSToDTB:
		var p types.DTSParams
		if err := ipc.DecodeBody(req.Params, &p); err != nil {
			return nil, err
		}
		ok, dtb, err := b.ConvertSource(ctx, p.DTS)
		return types.DTBResult{Success: ok, DTB: dtb}, err

	case types.MethodLoadBitstream:
		var p types.NameParams
		if err := ipc.DecodeBody(req.Params, &p); err != nil {
			return nil, err
		}
		return nil, b.LoadBitstream(ctx, p.Name)

	case types.MethodLoadDTBO:
		var p types.NameParams
		if err := ipc.DecodeBody(req.Params, &p); err != nil {
			return nil, err
		}
		ok, err := b.LoadOverlay(ctx, p.Name)
		return types.BoolResult{Success: ok}, err

	case types.MethodRegisterAccel:
		var p types.RegisterRequest
		if err := ipc.DecodeBody(req.Params, &p); err != nil {
			return nil, err
		}
		return nil, b.RegisterAccel(ctx, p)

	case types.MethodUnregisterAccel:
		var p types.NameParams
		if err := ipc.DecodeBody(req.Params, &p); err != nil {
			return nil, err
		}
		return nil, b.UnregisterAccel(ctx, p.Name)

	case types.MethodLoad:
		var p types.NameParams
		if err := ipc.DecodeBody(req.Params, &p); err != nil {
			return nil, err
		}
		ok, slot, err := b.LoadAccel(ctx, p.Name)
		return types.LoadResult{Success: ok, Slot: slot}, err

	case types.MethodUnload:
		var p types.SlotParams
		if err := ipc.DecodeBody(req.Params, &p); err != nil {
			return nil, err
		}
		ok, err := b.UnloadAccel(ctx, p.Slot)
		return types.BoolResult{Success: ok}, err

	default:
		return nil, fmt.Errorf("unknown method %q", req.Method)
	}
}
