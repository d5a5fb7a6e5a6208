package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jelly-fpga/fpgaload/iox"
	"github.com/jelly-fpga/fpgaload/types"
)

// S3Config holds configuration for s3:// artifact paths.
type S3Config struct {
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. MinIO on a lab server). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool
}

// ObjectAPI is the subset of the S3 client used by S3Store.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store reads and writes s3://bucket/key objects.
// The AWS client is created on first use so commands that never touch
// s3:// paths never load AWS configuration.
type S3Store struct {
	cfg S3Config

	mu     sync.Mutex
	client ObjectAPI
}

// NewS3Store creates an S3Store that builds its client lazily.
func NewS3Store(cfg S3Config) *S3Store {
	return &S3Store{cfg: cfg}
}

// NewS3StoreWithClient creates an S3Store over an existing client.
func NewS3StoreWithClient(client ObjectAPI) *S3Store {
	return &S3Store{client: client}
}

// ParseS3URI splits "s3://bucket/key" into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, S3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri %q needs bucket and key", uri)
	}
	return bucket, key, nil
}

func (s *S3Store) getClient(ctx context.Context) (ObjectAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		endpoint := s.cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if s.cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	s.client = s3.NewFromConfig(awsConfig, s3Opts...)
	return s.client, nil
}

// ReadFile downloads the object at uri.
func (s *S3Store) ReadFile(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, types.NewStepError(types.ErrLocalIO, types.StepRead, uri, err)
	}
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, types.NewStepError(types.ErrLocalIO, types.StepRead, uri, err)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, types.NewStepError(types.ErrLocalIO, types.StepRead, uri, err)
	}
	if out.Body == nil {
		return nil, types.NewStepError(types.ErrLocalIO, types.StepRead, uri, errors.New("empty response body"))
	}
	defer iox.DiscardClose(out.Body)

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, types.NewStepError(types.ErrLocalIO, types.StepRead, uri, err)
	}
	return data, nil
}

// WriteFile uploads data as the object at uri.
func (s *S3Store) WriteFile(ctx context.Context, uri string, data []byte) error {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return types.NewStepError(types.ErrLocalIO, types.StepWrite, uri, err)
	}
	client, err := s.getClient(ctx)
	if err != nil {
		return types.NewStepError(types.ErrLocalIO, types.StepWrite, uri, err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return types.NewStepError(types.ErrLocalIO, types.StepWrite, uri, err)
	}
	return nil
}

var _ Store = (*S3Store)(nil)
