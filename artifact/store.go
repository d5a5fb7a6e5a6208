// Package artifact reads and writes artifact bytes outside the agent.
//
// Paths are local filesystem paths unless they start with "s3://", in
// which case they address an object as s3://bucket/key. Every failure is
// classified as types.ErrLocalIO.
package artifact

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jelly-fpga/fpgaload/types"
)

// Store reads and writes whole artifacts.
type Store interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
}

// ReadText reads path through s and requires valid UTF-8 content.
func ReadText(ctx context.Context, s Store, path string) (string, error) {
	data, err := s.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", types.NewStepError(types.ErrLocalIO, types.StepRead, path,
			fmt.Errorf("content is not valid UTF-8"))
	}
	return string(data), nil
}

// OSStore uses the local filesystem.
type OSStore struct{}

// ReadFile reads the whole file at path.
func (OSStore) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewStepError(types.ErrLocalIO, types.StepRead, path, err)
	}
	return data, nil
}

// WriteFile writes data to path verbatim, creating or truncating it.
func (OSStore) WriteFile(_ context.Context, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.NewStepError(types.ErrLocalIO, types.StepWrite, path, err)
	}
	return nil
}

// S3Scheme prefixes object paths.
const S3Scheme = "s3://"

// IsS3Path reports whether path addresses an S3 object.
func IsS3Path(path string) bool {
	return strings.HasPrefix(path, S3Scheme)
}

// MuxStore routes s3:// paths to an object store and everything else to
// the local filesystem.
type MuxStore struct {
	Local Store
	// Objects serves s3:// paths. When nil, such paths fail.
	Objects Store
}

// NewMuxStore returns a MuxStore over the local filesystem and objects.
func NewMuxStore(objects Store) *MuxStore {
	return &MuxStore{Local: OSStore{}, Objects: objects}
}

func (m *MuxStore) route(path string) (Store, error) {
	if !IsS3Path(path) {
		return m.Local, nil
	}
	if m.Objects == nil {
		return nil, types.NewStepError(types.ErrLocalIO, types.StepRead, path,
			fmt.Errorf("no object store configured for %s paths", S3Scheme))
	}
	return m.Objects, nil
}

// ReadFile reads path from the matching backend.
func (m *MuxStore) ReadFile(ctx context.Context, path string) ([]byte, error) {
	s, err := m.route(path)
	if err != nil {
		return nil, err
	}
	return s.ReadFile(ctx, path)
}

// WriteFile writes path to the matching backend.
func (m *MuxStore) WriteFile(ctx context.Context, path string, data []byte) error {
	s, err := m.route(path)
	if err != nil {
		return err
	}
	return s.WriteFile(ctx, path, data)
}

var (
	_ Store = OSStore{}
	_ Store = (*MuxStore)(nil)
)
