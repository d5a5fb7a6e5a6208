// Package ipc implements length-prefixed msgpack framing for the agent
// wire protocol.
//
// Each frame is a 4-byte big-endian payload length followed by a msgpack
// payload. Payloads carry a "type" discriminant: "request" or "response".
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/jelly-fpga/fpgaload/types"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
	// FrameErrorEncode indicates a msgpack encoding error. Nothing was written.
	FrameErrorEncode
	// FrameErrorWrite indicates a failed write; part of a frame may be on the wire.
	FrameErrorWrite
)

// FrameError represents a frame encoding or decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the stream can no longer be trusted.
// Truncated or oversized frames desynchronize the stream.
// A decode error consumed exactly one whole frame and is not fatal.
func (e *FrameError) IsFatal() bool {
	switch e.Kind {
	case FrameErrorPartial, FrameErrorTooLarge, FrameErrorWrite:
		return true
	default:
		return false
	}
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame from the stream.
// Returns the raw payload bytes (msgpack-encoded).
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}

	return payload, nil
}

// FrameEncoder writes length-prefixed msgpack frames to a stream.
type FrameEncoder struct {
	writer io.Writer
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// WriteFrame msgpack-encodes v and writes it as one frame.
// The prefix and payload go out in a single Write call.
func (e *FrameEncoder) WriteFrame(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return &FrameError{Kind: FrameErrorEncode, Msg: "failed to encode payload", Err: err}
	}
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	if _, err := e.writer.Write(buf); err != nil {
		return &FrameError{Kind: FrameErrorWrite, Msg: "failed to write frame", Err: err}
	}
	return nil
}

// frameTypeHeader reads only the type field of a payload.
type frameTypeHeader struct {
	Type string `msgpack:"type"`
}

// DecodeFrame decodes a payload into a *types.RequestFrame or
// *types.ResponseFrame based on its type field.
func DecodeFrame(payload []byte) (any, error) {
	var header frameTypeHeader
	if err := msgpack.Unmarshal(payload, &header); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode frame type",
			Err:  err,
		}
	}

	switch header.Type {
	case types.RequestType:
		return DecodeRequest(payload)
	case types.ResponseType:
		return DecodeResponse(payload)
	default:
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unknown frame type %q", header.Type),
		}
	}
}

// DecodeRequest decodes a payload as a RequestFrame.
func DecodeRequest(payload []byte) (*types.RequestFrame, error) {
	var req types.RequestFrame
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode request",
			Err:  err,
		}
	}
	return &req, nil
}

// DecodeResponse decodes a payload as a ResponseFrame.
func DecodeResponse(payload []byte) (*types.ResponseFrame, error) {
	var resp types.ResponseFrame
	if err := msgpack.Unmarshal(payload, &resp); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode response",
			Err:  err,
		}
	}
	return &resp, nil
}

// DecodeBody decodes a request's params or a response's result into v.
func DecodeBody(raw msgpack.RawMessage, v any) error {
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode body", Err: err}
	}
	return nil
}

// EncodeBody encodes request params or a response result.
func EncodeBody(v any) (msgpack.RawMessage, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, &FrameError{Kind: FrameErrorEncode, Msg: "failed to encode body", Err: err}
	}
	return raw, nil
}
