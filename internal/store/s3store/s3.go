// Package s3store implements an AWS S3 storage backend.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/discochess/memo/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// API is the subset of *s3.Client used by Store.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store is an AWS S3 storage backend.
type Store struct {
	client API
	bucket string
	prefix string
}

// New creates a new S3 store.
// The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Store, error) {
	s := &Store{bucket: bucketName}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.client == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		s.client = s3.NewFromConfig(cfg)
	}

	return s, nil
}

// Option configures a Store.
type Option func(*Store) error

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Store) error {
		s.prefix = strings.TrimSuffix(prefix, "/")
		if s.prefix != "" {
			s.prefix += "/"
		}
		return nil
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(s *Store) error {
		cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
		if err != nil {
			return fmt.Errorf("loading AWS config with region: %w", err)
		}
		s.client = s3.NewFromConfig(cfg)
		return nil
	}
}

// WithEndpoint sets a custom endpoint (for S3-compatible services like MinIO).
func WithEndpoint(endpoint string) Option {
	return func(s *Store) error {
		cfg, err := config.LoadDefaultConfig(context.Background())
		if err != nil {
			return fmt.Errorf("loading AWS config for endpoint: %w", err)
		}
		s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
		return nil
	}
}

// WithClient uses an already configured client.
func WithClient(c API) Option {
	return func(s *Store) error {
		s.client = c
		return nil
	}
}

// Read returns the content of the named object.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	// Check for cancellation before starting.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("reading object: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object body: %w", err)
	}
	return data, nil
}

// Write uploads data as the named object.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(name)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("writing object: %w", err)
	}
	return nil
}

// Delete removes the named object.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}

// List pages through ListObjectsV2 under the store prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.objectKey(prefix)),
	})

	var names []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing objects: %w", err)
		}
		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(obj.Key), s.prefix))
		}
	}
	return names, nil
}

// Close releases resources.
func (s *Store) Close() error {
	// S3 client doesn't need explicit closing.
	return nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// objectKey returns the full object key for a name.
func (s *Store) objectKey(name string) string {
	return s.prefix + name
}
