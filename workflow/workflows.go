package workflow

import (
	"context"
	"errors"
	"strconv"

	"github.com/jelly-fpga/fpgaload/naming"
	"github.com/jelly-fpga/fpgaload/staging"
	"github.com/jelly-fpga/fpgaload/types"
)

// BitDownload uploads a bitstream, loads it, and removes the upload.
// If the load fails the bitstream stays on the agent.
func (o *Orchestrator) BitDownload(ctx context.Context, bitstreamPath string) (*types.Report, error) {
	inv := o.begin(types.CommandBitDownload)

	name, err := naming.BaseName(bitstreamPath)
	if err != nil {
		return inv.fail(types.StepResolve, bitstreamPath, err)
	}
	ref := types.ArtifactRef{LocalPath: bitstreamPath, RemoteName: name, Kind: types.KindBitstream}
	if err := inv.uploadFile(ctx, ref); err != nil {
		return inv.fail(types.StepUpload, name, err)
	}

	inv.log.Info("loading bitstream", map[string]any{"name": name})
	if err := o.agent.LoadBitstream(ctx, name); err != nil {
		return inv.fail(types.StepLoad, name, err)
	}

	if err := inv.commit(ctx, staging.FailFast); err != nil {
		return inv.fail(types.StepCleanup, name, err)
	}
	return inv.succeed()
}

// OverlayRequest holds the inputs of the overlay workflow.
type OverlayRequest struct {
	// Overlay is a precompiled .dtbo or a .dts source (required).
	Overlay string
	// Bitstream is an optional .bit file, converted on the agent.
	Bitstream string
	// Image is an optional binary image uploaded as is.
	// Mutually exclusive with Bitstream.
	Image string
}

// Overlay stages an optional image and the overlay, applies the overlay,
// then removes every staged artifact.
//
// Cleanup is best effort: every removal is attempted and a failure is
// reported in Report.CleanupError without failing the workflow.
func (o *Orchestrator) Overlay(ctx context.Context, req OverlayRequest) (*types.Report, error) {
	inv := o.begin(types.CommandOverlay)

	if req.Bitstream != "" && req.Image != "" {
		return inv.fail(types.StepResolve, "", types.NewStepError(types.ErrInvalidArgument, types.StepResolve, "",
			errors.New("a bitstream and a binary image are mutually exclusive")))
	}

	switch {
	case req.Bitstream != "":
		if _, err := inv.stageImage(ctx, req.Bitstream, true); err != nil {
			return inv.fail(types.StepUpload, req.Bitstream, err)
		}
	case req.Image != "":
		if _, err := inv.stageImage(ctx, req.Image, false); err != nil {
			return inv.fail(types.StepUpload, req.Image, err)
		}
	}

	overlay, err := inv.stageOverlay(ctx, req.Overlay, naming.KeepSourceExtension)
	if err != nil {
		return inv.fail(types.StepUpload, req.Overlay, err)
	}

	inv.log.Info("applying overlay", map[string]any{"name": overlay})
	ok, err := o.agent.LoadOverlay(ctx, overlay)
	if err != nil {
		return inv.fail(types.StepLoad, overlay, err)
	}
	if !ok {
		return inv.reject(types.StepLoad, overlay)
	}

	if err := inv.commit(ctx, staging.BestEffort); err != nil {
		inv.count(err)
		inv.report.CleanupError = err.Error()
		inv.log.Warn("cleanup incomplete", map[string]any{
			"error":       err.Error(),
			"left_staged": inv.report.Orphaned(),
		})
	}
	return inv.succeed()
}

// RegisterAccelRequest holds the inputs of accelerator registration.
type RegisterAccelRequest struct {
	// Name is the accelerator package name (required).
	Name string
	// Overlay is a precompiled .dtbo or a .dts source (required).
	Overlay string
	// Image is a .bit bitstream (converted on the agent) or a binary image.
	Image string
	// Metadata is an optional auxiliary file, typically JSON.
	Metadata string
}

// RegisterAccel stages the image, overlay, and optional metadata, then
// registers them as one accelerator package.
//
// Cleanup after registration stops at the first failed removal, and that
// failure fails the workflow.
func (o *Orchestrator) RegisterAccel(ctx context.Context, req RegisterAccelRequest) (*types.Report, error) {
	inv := o.begin(types.CommandRegisterAccel)
	inv.report.Accel = req.Name

	if req.Name == "" {
		return inv.fail(types.StepResolve, "", types.NewStepError(types.ErrInvalidArgument, types.StepResolve, "",
			errors.New("accelerator name is required")))
	}

	image, err := inv.stageImage(ctx, req.Image, naming.IsBitstream(req.Image))
	if err != nil {
		return inv.fail(types.StepUpload, req.Image, err)
	}

	overlay, err := inv.stageOverlay(ctx, req.Overlay, naming.StripSourceExtension)
	if err != nil {
		return inv.fail(types.StepUpload, req.Overlay, err)
	}

	var metadata *string
	if req.Metadata != "" {
		name, err := naming.BaseName(req.Metadata)
		if err != nil {
			return inv.fail(types.StepResolve, req.Metadata, err)
		}
		ref := types.ArtifactRef{LocalPath: req.Metadata, RemoteName: name, Kind: types.KindMetadata}
		if err := inv.uploadFile(ctx, ref); err != nil {
			return inv.fail(types.StepUpload, name, err)
		}
		metadata = &name
	}

	reg := types.RegisterRequest{
		AccelName:    req.Name,
		ImageName:    image,
		OverlayName:  overlay,
		MetadataName: metadata,
		Cleanup:      true,
	}
	inv.log.Info("registering accelerator", map[string]any{
		"accel":    reg.AccelName,
		"image":    reg.ImageName,
		"overlay":  reg.OverlayName,
		"metadata": metadata,
	})
	if err := o.agent.RegisterAccel(ctx, reg); err != nil {
		return inv.fail(types.StepRegister, req.Name, err)
	}

	if err := inv.commit(ctx, staging.FailFast); err != nil {
		return inv.fail(types.StepCleanup, req.Name, err)
	}
	return inv.succeed()
}

// UnregisterAccel removes an accelerator package.
func (o *Orchestrator) UnregisterAccel(ctx context.Context, name string) (*types.Report, error) {
	inv := o.begin(types.CommandUnregisterAccel)
	inv.report.Accel = name

	inv.log.Info("unregistering accelerator", map[string]any{"accel": name})
	if err := o.agent.UnregisterAccel(ctx, name); err != nil {
		return inv.fail(types.StepUnregister, name, err)
	}
	return inv.succeed()
}

// LoadAccel loads an accelerator package and reports its slot.
// A false success flag fails the workflow even without a transport error.
func (o *Orchestrator) LoadAccel(ctx context.Context, name string) (*types.Report, error) {
	inv := o.begin(types.CommandLoad)
	inv.report.Accel = name

	inv.log.Info("loading accelerator", map[string]any{"accel": name})
	ok, slot, err := o.agent.LoadAccel(ctx, name)
	if err != nil {
		return inv.fail(types.StepLoad, name, err)
	}
	if !ok {
		return inv.reject(types.StepLoad, name)
	}
	inv.report.Slot = &slot
	return inv.succeed()
}

// UnloadAccel unloads the accelerator in slot.
func (o *Orchestrator) UnloadAccel(ctx context.Context, slot int) (*types.Report, error) {
	inv := o.begin(types.CommandUnload)
	inv.report.Slot = &slot
	label := "slot " + strconv.Itoa(slot)

	inv.log.Info("unloading accelerator", map[string]any{"slot": slot})
	ok, err := o.agent.UnloadAccel(ctx, slot)
	if err != nil {
		return inv.fail(types.StepUnload, label, err)
	}
	if !ok {
		return inv.reject(types.StepUnload, label)
	}
	return inv.succeed()
}

// ConvertSource compiles a DTS file on the agent and writes the returned
// overlay bytes to outPath unchanged. Nothing is staged on the agent.
func (o *Orchestrator) ConvertSource(ctx context.Context, dtsPath, outPath string) (*types.Report, error) {
	inv := o.begin(types.CommandDTS2DTBO)
	inv.report.Output = outPath

	dtb, err := inv.compileSource(ctx, dtsPath)
	if err != nil {
		return inv.fail(types.StepConvert, dtsPath, err)
	}
	if err := o.store.WriteFile(ctx, outPath, dtb); err != nil {
		return inv.fail(types.StepWrite, outPath, err)
	}
	inv.log.Info("overlay written", map[string]any{"path": outPath, "bytes": len(dtb)})
	return inv.succeed()
}
