package types

// Version is the canonical project version.
// The CLI, the mock agent, and the wire protocol share this version.
const Version = "0.3.0"

// ProtocolVersion is the wire protocol revision carried in every request.
// It is bumped only when the frame or envelope layout changes.
const ProtocolVersion = 1
