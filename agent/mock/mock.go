// Package mock implements an in-memory agent backend.
//
// It keeps uploaded firmware, registered accelerator packages, and slot
// occupancy in memory. It backs the fpgaload-agent-mock binary and the
// end-to-end tests; it does not touch hardware.
package mock

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/jelly-fpga/fpgaload/agent"
	"github.com/jelly-fpga/fpgaload/types"
)

// fdtMagic starts every flattened device tree blob.
const fdtMagic = 0xd00dfeed

// Platforms accepted by ConvertBitstream.
var Platforms = []string{"zynq", "zynqmp"}

// Package is a registered accelerator.
type Package struct {
	Name     string
	Image    []byte
	Overlay  []byte
	Metadata []byte
	Cleanup  bool
}

// Options configures a Backend.
type Options struct {
	// Slots is the number of reconfigurable regions (default 1).
	Slots int
	// Reject lists wire methods that answer false instead of succeeding.
	// Only methods with a boolean result are affected.
	Reject []string
	// Fail lists wire methods that return an error.
	Fail []string
}

// Backend is an in-memory agent.Backend. Safe for concurrent use.
type Backend struct {
	mu        sync.Mutex
	firmware  map[string][]byte
	packages  map[string]*Package
	slots     []string
	bitstream string
	overlays  []string
	reject    map[string]bool
	fail      map[string]bool
}

// New creates an empty backend.
func New(opts Options) *Backend {
	if opts.Slots <= 0 {
		opts.Slots = 1
	}
	b := &Backend{
		firmware: make(map[string][]byte),
		packages: make(map[string]*Package),
		slots:    make([]string, opts.Slots),
		reject:   make(map[string]bool),
		fail:     make(map[string]bool),
	}
	for _, m := range opts.Reject {
		b.reject[m] = true
	}
	for _, m := range opts.Fail {
		b.fail[m] = true
	}
	return b
}

func (b *Backend) injected(method string) error {
	if b.fail[method] {
		return fmt.Errorf("%s: injected failure", method)
	}
	return nil
}

// UploadBytes stores a copy of data under name.
func (b *Backend) UploadBytes(_ context.Context, name string, data []byte) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(types.MethodUploadFirmware); err != nil {
		return false, err
	}
	if b.reject[types.MethodUploadFirmware] || name == "" || strings.ContainsAny(name, "/\\") {
		return false, nil
	}
	b.firmware[name] = bytes.Clone(data)
	return true, nil
}

// Remove deletes name. Removing an unknown name is an error.
func (b *Backend) Remove(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(types.MethodRemoveFirmware); err != nil {
		return err
	}
	if _, ok := b.firmware[name]; !ok {
		return fmt.Errorf("firmware %q not found", name)
	}
	delete(b.firmware, name)
	return nil
}

// ConvertBitstream stores the configuration data of src, starting at the
// sync word, as dst.
func (b *Backend) ConvertBitstream(_ context.Context, src, dst, platform string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(types.MethodBitstreamToBin); err != nil {
		return err
	}
	if !slices.Contains(Platforms, platform) {
		return fmt.Errorf("unsupported platform %q", platform)
	}
	data, ok := b.firmware[src]
	if !ok {
		return fmt.Errorf("firmware %q not found", src)
	}
	b.firmware[dst] = stripHeader(data)
	return nil
}

// syncWord marks the start of configuration data in a bitstream.
var syncWord = []byte{0xaa, 0x99, 0x55, 0x66}

// stripHeader drops the bitstream header preceding the sync word.
// Data without a sync word is returned unchanged.
func stripHeader(data []byte) []byte {
	i := bytes.Index(data, syncWord)
	if i < 0 {
		return bytes.Clone(data)
	}
	return bytes.Clone(data[i:])
}

// ConvertSource returns a blob of the FDT magic followed by the source
// text. Text without a "/dts-v1/" tag is rejected.
func (b *Backend) ConvertSource(_ context.Context, dts string) (bool, []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(types.MethodDTSToDTB); err != nil {
		return false, nil, err
	}
	if b.reject[types.MethodDTSToDTB] || !strings.Contains(dts, "/dts-v1/") {
		return false, nil, nil
	}
	blob := make([]byte, 4, 4+len(dts))
	binary.BigEndian.PutUint32(blob, fdtMagic)
	return true, append(blob, dts...), nil
}

// LoadBitstream marks name as the programmed bitstream.
func (b *Backend) LoadBitstream(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(types.MethodLoadBitstream); err != nil {
		return err
	}
	if _, ok := b.firmware[name]; !ok {
		return fmt.Errorf("firmware %q not found", name)
	}
	b.bitstream = name
	return nil
}

// LoadOverlay applies name if it was uploaded.
func (b *Backend) LoadOverlay(_ context.Context, name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(types.MethodLoadDTBO); err != nil {
		return false, err
	}
	if b.reject[types.MethodLoadDTBO] {
		return false, nil
	}
	if _, ok := b.firmware[name]; !ok {
		return false, nil
	}
	b.overlays = append(b.overlays, name)
	return true, nil
}

// RegisterAccel copies the named artifacts into a package.
// Registering an existing name replaces it.
func (b *Backend) RegisterAccel(_ context.Context, req types.RegisterRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(types.MethodRegisterAccel); err != nil {
		return err
	}
	if req.AccelName == "" {
		return fmt.Errorf("accelerator name is required")
	}
	image, ok := b.firmware[req.ImageName]
	if !ok {
		return fmt.Errorf("image %q not found", req.ImageName)
	}
	overlay, ok := b.firmware[req.OverlayName]
	if !ok {
		return fmt.Errorf("overlay %q not found", req.OverlayName)
	}
	pkg := &Package{
		Name:    req.AccelName,
		Image:   bytes.Clone(image),
		Overlay: bytes.Clone(overlay),
		Cleanup: req.Cleanup,
	}
	if req.MetadataName != nil {
		meta, ok := b.firmware[*req.MetadataName]
		if !ok {
			return fmt.Errorf("metadata %q not found", *req.MetadataName)
		}
		pkg.Metadata = bytes.Clone(meta)
	}
	b.packages[req.AccelName] = pkg
	return nil
}

// UnregisterAccel removes a package that is not loaded.
func (b *Backend) UnregisterAccel(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(types.MethodUnregisterAccel); err != nil {
		return err
	}
	if _, ok := b.packages[name]; !ok {
		return fmt.Errorf("accelerator %q not registered", name)
	}
	if slices.Contains(b.slots, name) {
		return fmt.Errorf("accelerator %q is loaded", name)
	}
	delete(b.packages, name)
	return nil
}

// LoadAccel places a registered package in the first free slot.
// Unknown packages and a full device answer false.
func (b *Backend) LoadAccel(_ context.Context, name string) (bool, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(types.MethodLoad); err != nil {
		return false, 0, err
	}
	if b.reject[types.MethodLoad] {
		return false, 0, nil
	}
	if _, ok := b.packages[name]; !ok {
		return false, 0, nil
	}
	for i, occupant := range b.slots {
		if occupant == "" {
			b.slots[i] = name
			return true, i, nil
		}
	}
	return false, 0, nil
}

// UnloadAccel frees slot. Empty or out-of-range slots answer false.
func (b *Backend) UnloadAccel(_ context.Context, slot int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.injected(types.MethodUnload); err != nil {
		return false, err
	}
	if b.reject[types.MethodUnload] || slot < 0 || slot >= len(b.slots) || b.slots[slot] == "" {
		return false, nil
	}
	b.slots[slot] = ""
	return true, nil
}

// Firmware returns the stored firmware names, sorted.
func (b *Backend) Firmware() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.firmware))
	for name := range b.firmware {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FirmwareData returns a copy of the bytes stored under name.
func (b *Backend) FirmwareData(name string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.firmware[name]
	return bytes.Clone(data), ok
}

// Package returns a registered package.
func (b *Backend) Package(name string) (*Package, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pkg, ok := b.packages[name]
	if !ok {
		return nil, false
	}
	cp := *pkg
	return &cp, true
}

// Slots returns slot occupancy; empty strings are free slots.
func (b *Backend) Slots() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.slots)
}

// Bitstream returns the name of the last loaded bitstream.
func (b *Backend) Bitstream() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bitstream
}

// Overlays returns applied overlay names in order.
func (b *Backend) Overlays() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.overlays)
}

var _ agent.Backend = (*Backend)(nil)
