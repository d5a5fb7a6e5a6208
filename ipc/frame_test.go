package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/jelly-fpga/fpgaload/types"
)

// encodeFrame encodes a payload with length prefix.
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

func uploadRequest(t *testing.T, id uint64, name string, data []byte) *types.RequestFrame {
	t.Helper()
	params, err := EncodeBody(types.UploadParams{Name: name, Data: data})
	if err != nil {
		t.Fatalf("EncodeBody failed: %v", err)
	}
	return &types.RequestFrame{
		Type:     types.RequestType,
		Protocol: types.ProtocolVersion,
		ID:       id,
		Method:   types.MethodUploadFirmware,
		Params:   params,
	}
}

func TestFrameEncoder_RequestRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	req := uploadRequest(t, 7, "design.bit", []byte{0x00, 0xff, 0x55})

	if err := NewFrameEncoder(&buf).WriteFrame(req); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	payload, err := NewFrameDecoder(&buf).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	decoded, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	got, ok := decoded.(*types.RequestFrame)
	if !ok {
		t.Fatalf("decoded %T, want *types.RequestFrame", decoded)
	}
	if got.ID != 7 || got.Method != types.MethodUploadFirmware || got.Protocol != types.ProtocolVersion {
		t.Errorf("unexpected request header: %+v", got)
	}

	var params types.UploadParams
	if err := DecodeBody(got.Params, &params); err != nil {
		t.Fatalf("DecodeBody failed: %v", err)
	}
	if params.Name != "design.bit" || !bytes.Equal(params.Data, []byte{0x00, 0xff, 0x55}) {
		t.Errorf("params = %+v", params)
	}
}

func TestFrameDecoder_MultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)
	for i := uint64(1); i <= 3; i++ {
		result, err := EncodeBody(types.BoolResult{Success: i%2 == 1})
		if err != nil {
			t.Fatalf("EncodeBody failed: %v", err)
		}
		if err := enc.WriteFrame(&types.ResponseFrame{Type: types.ResponseType, ID: i, Result: result}); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	dec := NewFrameDecoder(&buf)
	var ids []uint64
	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		resp, err := DecodeResponse(payload)
		if err != nil {
			t.Fatalf("DecodeResponse failed: %v", err)
		}
		ids = append(ids, resp.ID)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("ids = %v, want [1 2 3]", ids)
	}
}

func TestDecodeFrame_ErrorResponse(t *testing.T) {
	payload, err := msgpack.Marshal(&types.ResponseFrame{Type: types.ResponseType, ID: 4, Error: "no such firmware"})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	resp := decoded.(*types.ResponseFrame)
	if resp.Error != "no such firmware" || len(resp.Result) != 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestDecodeFrame_UnknownType(t *testing.T) {
	payload, _ := msgpack.Marshal(map[string]any{"type": "event"})
	_, err := DecodeFrame(payload)

	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Kind != FrameErrorDecode {
		t.Fatalf("expected decode FrameError, got %v", err)
	}
	if frameErr.IsFatal() {
		t.Error("decode errors should not be fatal")
	}
}

func TestFrameDecoder_PartialFrame(t *testing.T) {
	payload, _ := msgpack.Marshal(uploadRequest(t, 1, "x", make([]byte, 64)))
	frame := encodeFrame(payload)

	// Keep only length prefix + half payload
	truncated := frame[:LengthPrefixSize+len(frame[LengthPrefixSize:])/2]

	_, err := NewFrameDecoder(bytes.NewReader(truncated)).ReadFrame()
	if err == nil {
		t.Fatal("expected error for truncated frame")
	}
	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal frame error, got: %v", err)
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Errorf("Kind = %v, want FrameErrorPartial", frameErr.Kind)
	}
}

func TestFrameDecoder_OversizedFrame(t *testing.T) {
	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], MaxPayloadSize+1)

	_, err := NewFrameDecoder(bytes.NewReader(prefix[:])).ReadFrame()

	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Kind != FrameErrorTooLarge {
		t.Fatalf("expected FrameErrorTooLarge, got %v", err)
	}
	if !frameErr.IsFatal() {
		t.Error("FrameErrorTooLarge.IsFatal() should return true")
	}
}

func TestFrameEncoder_OversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := NewFrameEncoder(&buf).WriteFrame(uploadRequest(t, 1, "huge.bin", make([]byte, MaxPayloadSize)))

	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Kind != FrameErrorTooLarge {
		t.Fatalf("expected FrameErrorTooLarge, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written, got %d bytes", buf.Len())
	}
}

func TestFrameDecoder_EmptyStream(t *testing.T) {
	_, err := NewFrameDecoder(bytes.NewReader(nil)).ReadFrame()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestFrameDecoder_TruncatedLengthPrefix(t *testing.T) {
	_, err := NewFrameDecoder(bytes.NewReader([]byte{0x00, 0x01})).ReadFrame()
	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal error, got %v", err)
	}
}

func TestFrameDecoder_MalformedMsgpack(t *testing.T) {
	frame := encodeFrame([]byte{0xc1}) // 0xc1 is never used in msgpack
	payload, err := NewFrameDecoder(bytes.NewReader(frame)).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	_, err = DecodeFrame(payload)
	if err == nil || IsFatalFrameError(err) {
		t.Errorf("expected non-fatal decode error, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestFrameEncoder_WriteError(t *testing.T) {
	err := NewFrameEncoder(failingWriter{}).WriteFrame(&types.ResponseFrame{Type: types.ResponseType})
	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Kind != FrameErrorWrite {
		t.Fatalf("expected FrameErrorWrite, got %v", err)
	}
	if frameErr.Unwrap() == nil {
		t.Error("write error should be wrapped")
	}
	if !IsFatalFrameError(err) {
		t.Error("a failed write must be fatal")
	}
}

func TestIsFatalFrameError_NonFrameError(t *testing.T) {
	if IsFatalFrameError(errors.New("plain")) {
		t.Error("plain errors are not fatal frame errors")
	}
}
