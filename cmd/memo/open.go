package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/discochess/memo/archive"
	"github.com/discochess/memo/archive/blobarchive"
	"github.com/discochess/memo/archive/dirarchive"
	"github.com/discochess/memo/archive/filearchive"
	"github.com/discochess/memo/archive/gcsarchive"
	"github.com/discochess/memo/archive/redisarchive"
	"github.com/discochess/memo/archive/s3archive"
	"github.com/discochess/memo/archive/serial"
	"github.com/discochess/memo/archive/sqlarchive"
)

// document is the value type of archives opened by the CLI.
type document = any

// closer is implemented by archives holding connections or handles.
type closer interface {
	Close() error
}

// openArchive opens the archive selected by cfg. The returned func
// releases it.
func (a *app) openArchive(ctx context.Context) (archive.Archive[document], func(), error) {
	cfg := a.cfg
	s, err := serial.ByName(cfg.Serializer)
	if err != nil {
		return nil, nil, err
	}

	var arc archive.Archive[document]
	switch cfg.Backend {
	case "dir", "":
		opts := []dirarchive.Option{
			dirarchive.WithSerializer(s),
			dirarchive.WithCompression(cfg.Compression),
			dirarchive.WithLogger(a.logger),
		}
		if cfg.Zstd > 0 {
			opts = append(opts, dirarchive.WithZstd(cfg.Zstd))
		}
		arc, err = dirarchive.New[document](cfg.Path, opts...)

	case "file":
		opts := []filearchive.Option{
			filearchive.WithSerializer(s),
			filearchive.WithCompression(cfg.Compression),
			filearchive.WithLogger(a.logger),
		}
		if cfg.Zstd > 0 {
			opts = append(opts, filearchive.WithZstd(cfg.Zstd))
		}
		arc, err = filearchive.New[document](cfg.Path, opts...)

	case "sqlite":
		opts := []sqlarchive.Option{
			sqlarchive.WithTable(cfg.Table),
			sqlarchive.WithSerializer(s),
			sqlarchive.WithCompression(cfg.Compression),
			sqlarchive.WithLogger(a.logger),
		}
		if cfg.Zstd > 0 {
			opts = append(opts, sqlarchive.WithZstd(cfg.Zstd))
		}
		arc, err = sqlarchive.New[document](cfg.Path, opts...)

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts := []redisarchive.Option{
			redisarchive.WithPrefix(cfg.Redis.Prefix),
			redisarchive.WithCloser(client),
			redisarchive.WithSerializer(s),
			redisarchive.WithCompression(cfg.Compression),
			redisarchive.WithLogger(a.logger),
		}
		if cfg.Timeout > 0 {
			opts = append(opts, redisarchive.WithTimeout(cfg.Timeout))
		}
		if cfg.Zstd > 0 {
			opts = append(opts, redisarchive.WithZstd(cfg.Zstd))
		}
		arc, err = redisarchive.New[document](client, opts...)
		if err != nil {
			client.Close()
		}

	case "s3":
		arc, err = s3archive.New[document](ctx, s3archive.Config{
			Bucket:   cfg.Object.Bucket,
			Prefix:   cfg.Object.Prefix,
			Region:   cfg.Object.Region,
			Endpoint: cfg.Object.Endpoint,
		}, a.blobOptions(s)...)

	case "gcs":
		arc, err = gcsarchive.New[document](ctx, gcsarchive.Config{
			Bucket: cfg.Object.Bucket,
			Prefix: cfg.Object.Prefix,
		}, a.blobOptions(s)...)

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s archive: %w", cfg.Backend, err)
	}

	release := func() {
		if c, ok := arc.(closer); ok {
			if err := c.Close(); err != nil {
				a.logger.Warn("closing archive failed", zap.Error(err))
			}
		}
	}
	return arc, release, nil
}

func (a *app) blobOptions(s serial.Serializer) []blobarchive.Option {
	cfg := a.cfg
	opts := []blobarchive.Option{
		blobarchive.WithSerializer(s),
		blobarchive.WithCompression(cfg.Compression),
		blobarchive.WithReadCache(cfg.ReadCache),
		blobarchive.WithLogger(a.logger),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, blobarchive.WithTimeout(cfg.Timeout))
	}
	if cfg.Zstd > 0 {
		opts = append(opts, blobarchive.WithZstd(cfg.Zstd))
	}
	return opts
}
