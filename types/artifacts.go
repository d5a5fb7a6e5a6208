// Package types defines core domain types shared by the fpgaload packages.
//
//nolint:revive // types is a common Go package naming convention
package types

import "fmt"

// ArtifactKind classifies a staged artifact.
type ArtifactKind string

const (
	// KindBitstream is a raw bitstream (.bit) for the reconfigurable fabric.
	KindBitstream ArtifactKind = "bitstream"
	// KindBinaryImage is the platform-encoded form of a bitstream (.bin).
	KindBinaryImage ArtifactKind = "binary_image"
	// KindOverlay is a compiled device-tree overlay (.dtbo).
	KindOverlay ArtifactKind = "overlay"
	// KindSource is device-tree source text (.dts).
	KindSource ArtifactKind = "source"
	// KindMetadata is auxiliary accelerator metadata (typically JSON).
	KindMetadata ArtifactKind = "metadata"
)

// IsValid reports whether k is a known artifact kind.
func (k ArtifactKind) IsValid() bool {
	switch k {
	case KindBitstream, KindBinaryImage, KindOverlay, KindSource, KindMetadata:
		return true
	default:
		return false
	}
}

// ArtifactRef addresses one artifact within a single workflow invocation.
//
// RemoteName is the identifier the agent uses for the uploaded bytes and
// must be unique within the invocation's staging set. LocalPath is empty
// for artifacts that only exist remotely (conversion outputs).
type ArtifactRef struct {
	LocalPath  string       `json:"local_path,omitempty" yaml:"local_path,omitempty"`
	RemoteName string       `json:"remote_name" yaml:"remote_name"`
	Kind       ArtifactKind `json:"kind" yaml:"kind"`
}

// String renders the ref for logs, e.g. "bitstream(design.bit <- ./design.bit)".
func (r ArtifactRef) String() string {
	switch {
	case r.LocalPath == "":
		return fmt.Sprintf("%s(%s)", r.Kind, r.RemoteName)
	case r.RemoteName == "":
		return fmt.Sprintf("%s(<- %s)", r.Kind, r.LocalPath)
	default:
		return fmt.Sprintf("%s(%s <- %s)", r.Kind, r.RemoteName, r.LocalPath)
	}
}

// RegisterRequest carries the arguments of a register-accelerator call.
// MetadataName is nil when no metadata artifact was staged.
type RegisterRequest struct {
	AccelName    string  `msgpack:"accel_name" json:"accel_name"`
	ImageName    string  `msgpack:"bin_name" json:"bin_name"`
	OverlayName  string  `msgpack:"dtbo_name" json:"dtbo_name"`
	MetadataName *string `msgpack:"json_name,omitempty" json:"json_name,omitempty"`
	// Cleanup marks the package contents as removable by the agent once
	// the package is unregistered.
	Cleanup bool `msgpack:"cleanup" json:"cleanup"`
}
