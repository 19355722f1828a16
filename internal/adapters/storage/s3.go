// Package storage reads per-batch extraction results from object storage.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/okian/handrecon/internal/domain/model"
)

// Sentinel kinds for storage errors.
var (
	ErrBucketRequired = errors.New("s3 bucket is required")
	ErrNoBatches      = errors.New("no batch results under prefix")
)

// API is the subset of the S3 client the source uses.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds configuration for the S3 backend.
type S3Config struct {
	Bucket string
	// Region is optional; the default chain applies when empty.
	Region string
	// Endpoint is a custom URL for S3-compatible providers such as MinIO.
	Endpoint string
	// UsePathStyle puts the bucket in the path instead of the host.
	UsePathStyle bool
}

// S3Source lists and decodes VisionBatchResult JSON objects.
type S3Source struct {
	client API
	bucket string
}

// NewS3Source loads AWS configuration from the default credential chain.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = &endpoint })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	return NewS3SourceWithClient(s3.NewFromConfig(awsConfig, s3Opts...), cfg.Bucket), nil
}

// NewS3SourceWithClient wraps an existing client.
func NewS3SourceWithClient(client API, bucket string) *S3Source {
	return &S3Source{client: client, bucket: bucket}
}

// Batches returns every .json object under prefix decoded as a batch
// result, ordered by key.
func (s *S3Source) Batches(ctx context.Context, prefix string) ([]model.VisionBatchResult, error) {
	keys, err := s.keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBatches, prefix)
	}

	out := make([]model.VisionBatchResult, 0, len(keys))
	for _, key := range keys {
		b, err := s.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *S3Source) keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if key := aws.ToString(obj.Key); strings.HasSuffix(key, ".json") {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *S3Source) fetch(ctx context.Context, key string) (model.VisionBatchResult, error) {
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return model.VisionBatchResult{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Body.Close()

	raw, err := io.ReadAll(obj.Body)
	if err != nil {
		return model.VisionBatchResult{}, fmt.Errorf("read %s: %w", key, err)
	}
	var b model.VisionBatchResult
	if err := json.Unmarshal(raw, &b); err != nil {
		return model.VisionBatchResult{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return b, nil
}
