package types

import "github.com/vmihailenco/msgpack/v5"

// Frame type discriminants for the agent wire protocol.
const (
	RequestType  = "request"
	ResponseType = "response"
)

// Wire method names.
const (
	MethodUploadFirmware  = "upload_firmware"
	MethodRemoveFirmware  = "remove_firmware"
	MethodBitstreamToBin  = "bitstream_to_bin"
	MethodDTSToDTB        = "dts_to_dtb"
	MethodLoadBitstream   = "load_bitstream"
	MethodLoadDTBO        = "load_dtbo"
	MethodRegisterAccel   = "register_accel"
	MethodUnregisterAccel = "unregister_accel"
	MethodLoad            = "load"
	MethodUnload          = "unload"
)

// RequestFrame is one call from client to agent.
type RequestFrame struct {
	// Type is always "request".
	Type     string             `msgpack:"type"`
	Protocol int                `msgpack:"protocol"`
	ID       uint64             `msgpack:"id"`
	Method   string             `msgpack:"method"`
	Params   msgpack.RawMessage `msgpack:"params"`
}

// ResponseFrame answers the request with the same ID.
// A non-empty Error means the agent could not perform the call at all.
type ResponseFrame struct {
	// Type is always "response".
	Type   string             `msgpack:"type"`
	ID     uint64             `msgpack:"id"`
	Error  string             `msgpack:"error,omitempty"`
	Result msgpack.RawMessage `msgpack:"result,omitempty"`
}

// Method parameter and result payloads.

type NameParams struct {
	Name string `msgpack:"name"`
}

type UploadParams struct {
	Name string `msgpack:"name"`
	Data []byte `msgpack:"data"`
}

type BitstreamToBinParams struct {
	BitstreamName string `msgpack:"bitstream_name"`
	BinName       string `msgpack:"bin_name"`
	Arch          string `msgpack:"arch"`
}

type DTSParams struct {
	DTS string `msgpack:"dts"`
}

type SlotParams struct {
	Slot int `msgpack:"slot"`
}

type BoolResult struct {
	Success bool `msgpack:"success"`
}

type DTBResult struct {
	Success bool   `msgpack:"success"`
	DTB     []byte `msgpack:"dtb"`
}

type LoadResult struct {
	Success bool `msgpack:"success"`
	Slot    int  `msgpack:"slot"`
}
