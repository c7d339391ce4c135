// Package gcsarchive opens archives stored in a Google Cloud Storage bucket.
package gcsarchive

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/discochess/memo/archive/blobarchive"
	"github.com/discochess/memo/internal/store/gcsstore"
)

// Config locates an archive in GCS.
type Config struct {
	// Bucket must already exist.
	Bucket string
	// Prefix is the object prefix of the archive.
	Prefix string
	// ClientOptions are passed to storage.NewClient.
	ClientOptions []option.ClientOption
}

// New opens the archive described by cfg. Close the returned archive to
// release the GCS client.
func New[V any](ctx context.Context, cfg Config, opts ...blobarchive.Option) (*blobarchive.Archive[V], error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcsarchive: bucket is required")
	}

	s, err := gcsstore.New(ctx, cfg.Bucket, nil, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("opening GCS bucket %s: %w", cfg.Bucket, err)
	}

	opts = append([]blobarchive.Option{blobarchive.WithPrefix(cfg.Prefix)}, opts...)
	a, err := blobarchive.New[V](s, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return a, nil
}
