package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jelly-fpga/fpgaload/types"
)

func TestOSStore_WriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.dtbo")
	want := []byte{0xd0, 0x0d, 0xfe, 0xed, 0x00, 0x0a}

	s := OSStore{}
	if err := s.WriteFile(testContext(t), path, want); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := s.ReadFile(testContext(t), path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestOSStore_MissingFile(t *testing.T) {
	_, err := OSStore{}.ReadFile(testContext(t), filepath.Join(t.TempDir(), "missing.bit"))
	if !errors.Is(err, types.ErrLocalIO) {
		t.Fatalf("expected ErrLocalIO, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("underlying error should be preserved, got %v", err)
	}
	if types.StepOf(err) != types.StepRead {
		t.Errorf("step = %q, want read", types.StepOf(err))
	}
}

func TestOSStore_WriteIntoMissingDir(t *testing.T) {
	err := OSStore{}.WriteFile(testContext(t), filepath.Join(t.TempDir(), "no", "such", "out.dtbo"), []byte("x"))
	if !errors.Is(err, types.ErrLocalIO) || types.StepOf(err) != types.StepWrite {
		t.Fatalf("expected write ErrLocalIO, got %v", err)
	}
}

func TestReadText_InvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dts")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadText(testContext(t), OSStore{}, path)
	if !errors.Is(err, types.ErrLocalIO) {
		t.Fatalf("expected ErrLocalIO, got %v", err)
	}
}

func TestReadText_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.dts")
	if err := os.WriteFile(path, []byte("/dts-v1/;\n/plugin/;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadText(testContext(t), OSStore{}, path)
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if got != "/dts-v1/;\n/plugin/;\n" {
		t.Errorf("got %q", got)
	}
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://fpga-artifacts/kv260/design.bit")
	if err != nil {
		t.Fatalf("ParseS3URI failed: %v", err)
	}
	if bucket != "fpga-artifacts" || key != "kv260/design.bit" {
		t.Errorf("got (%q, %q)", bucket, key)
	}

	for _, bad := range []string{"s3://", "s3://bucket", "s3://bucket/", "/local/path"} {
		if _, _, err := ParseS3URI(bad); err == nil {
			t.Errorf("ParseS3URI(%q) should fail", bad)
		}
	}
}

// fakeObjects is an in-memory ObjectAPI.
type fakeObjects struct {
	objects map[string][]byte
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Roundtrip(t *testing.T) {
	fake := &fakeObjects{objects: map[string][]byte{}}
	s := NewS3StoreWithClient(fake)

	if err := s.WriteFile(testContext(t), "s3://lab/out/top.dtbo", []byte("dtb")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if string(fake.objects["lab/out/top.dtbo"]) != "dtb" {
		t.Errorf("object not stored: %v", fake.objects)
	}
	got, err := s.ReadFile(testContext(t), "s3://lab/out/top.dtbo")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "dtb" {
		t.Errorf("got %q", got)
	}

	_, err = s.ReadFile(testContext(t), "s3://lab/missing.bit")
	if !errors.Is(err, types.ErrLocalIO) {
		t.Errorf("expected ErrLocalIO, got %v", err)
	}
}

func TestMuxStore_Routing(t *testing.T) {
	fake := &fakeObjects{objects: map[string][]byte{"lab/design.bit": []byte("remote")}}
	m := NewMuxStore(NewS3StoreWithClient(fake))

	got, err := m.ReadFile(testContext(t), "s3://lab/design.bit")
	if err != nil || string(got) != "remote" {
		t.Fatalf("s3 read = %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "design.bit")
	if err := m.WriteFile(testContext(t), path, []byte("local")); err != nil {
		t.Fatalf("local write failed: %v", err)
	}
	got, err = m.ReadFile(testContext(t), path)
	if err != nil || string(got) != "local" {
		t.Fatalf("local read = %q, %v", got, err)
	}
}

func TestMuxStore_NoObjectStore(t *testing.T) {
	m := NewMuxStore(nil)
	_, err := m.ReadFile(testContext(t), "s3://lab/design.bit")
	if !errors.Is(err, types.ErrLocalIO) {
		t.Errorf("expected ErrLocalIO, got %v", err)
	}
}
