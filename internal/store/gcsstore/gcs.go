// Package gcsstore implements a Google Cloud Storage backend.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/discochess/memo/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is a Google Cloud Storage backend.
type Store struct {
	client     *storage.Client
	bucket     *storage.BucketHandle
	bucketName string
	prefix     string
}

// New creates a new GCS store.
// The bucket must already exist. clientOpts are passed to storage.NewClient.
func New(ctx context.Context, bucketName string, opts []Option, clientOpts ...option.ClientOption) (*Store, error) {
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	s := &Store{
		client:     client,
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = strings.TrimSuffix(prefix, "/")
		if s.prefix != "" {
			s.prefix += "/"
		}
	}
}

// Read returns the content of the named object.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	// Check for cancellation before starting.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := s.bucket.Object(s.objectKey(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("creating reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}
	return data, nil
}

// Write uploads data as the named object.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	w := s.bucket.Object(s.objectKey(name)).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("writing object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing object: %w", err)
	}
	return nil
}

// Delete removes the named object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.bucket.Object(s.objectKey(name)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}

// List returns the names of objects under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.objectKey(prefix)})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing objects: %w", err)
		}
		names = append(names, strings.TrimPrefix(attrs.Name, s.prefix))
	}
	return names, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return s.client.Close()
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucketName
}

// objectKey returns the full object key for a name.
func (s *Store) objectKey(name string) string {
	return s.prefix + name
}
