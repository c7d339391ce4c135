// Package s3archive opens archives stored in an AWS S3 bucket.
//
// Entries are laid out as described in package blobarchive; the archive's
// prefix is the key prefix inside the bucket and Copy duplicates entries to
// another prefix of the same bucket.
package s3archive

import (
	"context"
	"fmt"

	"github.com/discochess/memo/archive/blobarchive"
	"github.com/discochess/memo/internal/store/s3store"
)

// Client is the subset of *s3.Client the archive needs.
type Client = s3store.API

// Config locates an archive in S3.
type Config struct {
	// Bucket must already exist.
	Bucket string
	// Prefix is the key prefix of the archive, e.g. "memo/fib".
	Prefix string
	// Region overrides the region from the default AWS configuration.
	Region string
	// Endpoint selects an S3-compatible service such as MinIO.
	Endpoint string
	// Client, when set, is used instead of one built from the default
	// AWS configuration. Region and Endpoint are then ignored.
	Client Client
}

// New opens the archive described by cfg. opts apply after the prefix from
// cfg, so a WithPrefix option overrides it.
func New[V any](ctx context.Context, cfg Config, opts ...blobarchive.Option) (*blobarchive.Archive[V], error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3archive: bucket is required")
	}

	var storeOpts []s3store.Option
	switch {
	case cfg.Client != nil:
		storeOpts = append(storeOpts, s3store.WithClient(cfg.Client))
	case cfg.Endpoint != "":
		storeOpts = append(storeOpts, s3store.WithEndpoint(cfg.Endpoint))
	case cfg.Region != "":
		storeOpts = append(storeOpts, s3store.WithRegion(cfg.Region))
	}

	s, err := s3store.New(ctx, cfg.Bucket, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("opening S3 bucket %s: %w", cfg.Bucket, err)
	}

	opts = append([]blobarchive.Option{blobarchive.WithPrefix(cfg.Prefix)}, opts...)
	return blobarchive.New[V](s, opts...)
}
