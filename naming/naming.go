// Package naming derives remote artifact names from local paths.
//
// All functions are pure: they inspect path strings only and never touch
// the filesystem.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jelly-fpga/fpgaload/types"
)

// Suffixes for derived and detected artifact names.
const (
	BinarySuffix  = ".bin"
	OverlaySuffix = ".dtbo"
	SourceSuffix  = ".dts"
	BitSuffix     = ".bit"
)

// Overlay name derivation modes for DeriveOverlayNameFromSource.
//
// The overlay workflow keeps the source extension inside the derived name
// while accelerator registration strips it. Both call sites pass their mode
// explicitly; the divergence is kept until the artifact owner confirms
// which form the agent expects.
const (
	KeepSourceExtension  = false
	StripSourceExtension = true
)

// BaseName returns the last component of path.
// Fails with types.ErrInvalidPath for an empty path, a path ending in a
// separator, or a path whose last component is "." or "..".
func BaseName(path string) (string, error) {
	if path == "" {
		return "", invalid(path)
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return "", invalid(path)
	}
	base := filepath.Base(path)
	switch base {
	case ".", "..", string(filepath.Separator):
		return "", invalid(path)
	}
	return base, nil
}

// Stem returns the last component of path without its final extension.
// A leading dot does not start an extension (".config" has stem ".config").
func Stem(path string) (string, error) {
	base, err := BaseName(path)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return base, nil
	}
	return strings.TrimSuffix(base, ext), nil
}

// DeriveConvertedBinaryName appends ".bin" to a bitstream's remote name.
// It is not idempotent: callers apply it exactly once per bitstream, so
// "foo.bit" becomes "foo.bit.bin".
func DeriveConvertedBinaryName(bitstreamRemoteName string) string {
	return bitstreamRemoteName + BinarySuffix
}

// DeriveOverlayNameFromSource names the overlay compiled from a DTS file.
// With useStem the source extension is dropped ("design.dts" -> "design.dtbo");
// without it the full file name is kept ("design.dts" -> "design.dts.dtbo").
func DeriveOverlayNameFromSource(dtsPath string, useStem bool) (string, error) {
	var (
		base string
		err  error
	)
	if useStem {
		base, err = Stem(dtsPath)
	} else {
		base, err = BaseName(dtsPath)
	}
	if err != nil {
		return "", err
	}
	return base + OverlaySuffix, nil
}

// IsSource reports whether path names device-tree source text.
func IsSource(path string) bool {
	return strings.HasSuffix(path, SourceSuffix)
}

// IsBitstream reports whether path names a raw bitstream.
func IsBitstream(path string) bool {
	return strings.HasSuffix(path, BitSuffix)
}

func invalid(path string) error {
	return types.NewStepError(types.ErrInvalidPath, types.StepResolve, path,
		fmt.Errorf("no file name in %q", path))
}
