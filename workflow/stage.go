package workflow

import (
	"context"

	"github.com/jelly-fpga/fpgaload/artifact"
	"github.com/jelly-fpga/fpgaload/naming"
	"github.com/jelly-fpga/fpgaload/types"
)

// transportErr attributes an agent call failure to step.
func transportErr(step, name string, err error) error {
	if types.StepOf(err) != "" {
		return err
	}
	return types.NewStepError(types.KindOf(err, types.ErrTransport), step, name, err)
}

// uploadFile uploads ref.LocalPath as ref.RemoteName and records it.
func (inv *invocation) uploadFile(ctx context.Context, ref types.ArtifactRef) error {
	inv.log.Info("uploading artifact", map[string]any{"artifact": ref.String()})
	ok, err := inv.o.agent.UploadFile(ctx, ref.RemoteName, ref.LocalPath)
	if err != nil {
		return transportErr(types.StepUpload, ref.RemoteName, err)
	}
	if !ok {
		return types.Rejected(types.StepUpload, ref.RemoteName)
	}
	inv.o.collector.AddUpload(-1)
	inv.record(ref.RemoteName)
	return nil
}

// uploadBytes uploads data as ref.RemoteName and records it.
func (inv *invocation) uploadBytes(ctx context.Context, ref types.ArtifactRef, data []byte) error {
	inv.log.Info("uploading artifact", map[string]any{
		"artifact": ref.String(),
		"bytes":    len(data),
	})
	name := ref.RemoteName
	ok, err := inv.o.agent.UploadBytes(ctx, name, data)
	if err != nil {
		return transportErr(types.StepUpload, name, err)
	}
	if !ok {
		return types.Rejected(types.StepUpload, name)
	}
	inv.o.collector.AddUpload(int64(len(data)))
	inv.record(name)
	return nil
}

// stageImage stages the binary image for path and returns its remote name.
//
// A bitstream is uploaded under its base name and converted remotely into
// "<name>.bin"; both names are recorded. Anything else is uploaded as the
// image directly.
func (inv *invocation) stageImage(ctx context.Context, path string, bitstream bool) (string, error) {
	name, err := naming.BaseName(path)
	if err != nil {
		return "", err
	}

	if !bitstream {
		ref := types.ArtifactRef{LocalPath: path, RemoteName: name, Kind: types.KindBinaryImage}
		if err := inv.uploadFile(ctx, ref); err != nil {
			return "", err
		}
		return name, nil
	}

	ref := types.ArtifactRef{LocalPath: path, RemoteName: name, Kind: types.KindBitstream}
	if err := inv.uploadFile(ctx, ref); err != nil {
		return "", err
	}

	binName := naming.DeriveConvertedBinaryName(name)
	inv.log.Info("converting bitstream", map[string]any{
		"from":     name,
		"to":       binName,
		"platform": inv.o.platform,
	})
	if err := inv.o.agent.ConvertBitstream(ctx, name, binName, inv.o.platform); err != nil {
		return "", transportErr(types.StepConvert, name, err)
	}
	inv.o.collector.IncConversion()
	inv.record(binName)
	return binName, nil
}

// compileSource reads a DTS file and compiles it on the agent.
func (inv *invocation) compileSource(ctx context.Context, path string) ([]byte, error) {
	text, err := artifact.ReadText(ctx, inv.o.store, path)
	if err != nil {
		return nil, err
	}
	src := types.ArtifactRef{LocalPath: path, Kind: types.KindSource}
	inv.log.Info("compiling device-tree source", map[string]any{"artifact": src.String(), "bytes": len(text)})
	ok, dtb, err := inv.o.agent.ConvertSource(ctx, text)
	if err != nil {
		return nil, transportErr(types.StepConvert, path, err)
	}
	if !ok {
		return nil, types.Rejected(types.StepConvert, path)
	}
	inv.o.collector.IncConversion()
	return dtb, nil
}

// stageOverlay stages the overlay for path and returns its remote name.
//
// A ".dts" path is compiled on the agent and the result uploaded under a
// derived ".dtbo" name (useStem selects the derivation, see
// naming.DeriveOverlayNameFromSource). Any other path is uploaded as a
// precompiled overlay under its base name.
func (inv *invocation) stageOverlay(ctx context.Context, path string, useStem bool) (string, error) {
	if !naming.IsSource(path) {
		name, err := naming.BaseName(path)
		if err != nil {
			return "", err
		}
		ref := types.ArtifactRef{LocalPath: path, RemoteName: name, Kind: types.KindOverlay}
		if err := inv.uploadFile(ctx, ref); err != nil {
			return "", err
		}
		return name, nil
	}

	name, err := naming.DeriveOverlayNameFromSource(path, useStem)
	if err != nil {
		return "", err
	}
	dtb, err := inv.compileSource(ctx, path)
	if err != nil {
		return "", err
	}
	ref := types.ArtifactRef{RemoteName: name, Kind: types.KindOverlay}
	if err := inv.uploadBytes(ctx, ref, dtb); err != nil {
		return "", err
	}
	return name, nil
}
