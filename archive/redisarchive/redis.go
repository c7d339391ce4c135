// Package redisarchive implements an archive stored in Redis.
//
// Every entry is a plain string value under "<prefix><key>". The archive
// owns the whole prefix: Keys, Len and Clear scan for it.
package redisarchive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/discochess/memo/archive"
)

// Compile-time check that Archive implements archive.Archive.
var _ archive.Archive[int] = (*Archive[int])(nil)

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 256

// Archive is a persistent archive in a Redis keyspace.
type Archive[V any] struct {
	client redis.Cmdable
	cfg    config
	logger *zap.Logger
}

// New creates an archive that talks to Redis through client.
func New[V any](client redis.Cmdable, opts ...Option) (*Archive[V], error) {
	if client == nil {
		return nil, errors.New("redisarchive: nil client")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return &Archive[V]{client: client, cfg: cfg, logger: cfg.logger}, nil
}

// Get returns the value stored under key.
func (a *Archive[V]) Get(key string) (V, error) {
	var v V

	ctx, cancel := a.context()
	defer cancel()

	raw, err := a.client.Get(ctx, a.cfg.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return v, archive.Miss(key, archive.KindAbsent, err)
		}
		a.logger.Warn("redis get failed, treating as miss", zap.String("key", key), zap.Error(err))
		return v, archive.Miss(key, archive.KindIO, err)
	}

	if err := a.cfg.format.Decode(raw, &v); err != nil {
		a.logger.Warn("undecodable value treated as miss", zap.String("key", key), zap.Error(err))
		return v, archive.Miss(key, archive.KindCorrupt, err)
	}
	return v, nil
}

// Set stores value under key without expiry.
func (a *Archive[V]) Set(key string, value V) error {
	data, err := a.cfg.format.Encode(value)
	if err != nil {
		return archive.WriteFault(archive.OpSet, key, err)
	}

	ctx, cancel := a.context()
	defer cancel()

	if err := a.client.Set(ctx, a.cfg.prefix+key, data, 0).Err(); err != nil {
		return archive.WriteFault(archive.OpSet, key, err)
	}
	return nil
}

// Delete removes key.
func (a *Archive[V]) Delete(key string) error {
	ctx, cancel := a.context()
	defer cancel()

	if err := a.client.Del(ctx, a.cfg.prefix+key).Err(); err != nil {
		return archive.WriteFault(archive.OpDelete, key, err)
	}
	return nil
}

// Contains reports whether key exists.
func (a *Archive[V]) Contains(key string) bool {
	ctx, cancel := a.context()
	defer cancel()

	n, err := a.client.Exists(ctx, a.cfg.prefix+key).Result()
	return err == nil && n > 0
}

// Keys scans the prefix and returns the keys without it, sorted.
func (a *Archive[V]) Keys() ([]string, error) {
	names, err := a.scan()
	if err != nil {
		return nil, archive.WriteFault(archive.OpKeys, "", err)
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = strings.TrimPrefix(name, a.cfg.prefix)
	}
	slices.Sort(keys)
	return keys, nil
}

// Len returns the number of keys under the prefix, or 0 on failure.
func (a *Archive[V]) Len() int {
	names, err := a.scan()
	if err != nil {
		a.logger.Warn("redis scan failed", zap.Error(err))
		return 0
	}
	return len(names)
}

// Clear deletes every key under the prefix.
func (a *Archive[V]) Clear() error {
	names, err := a.scan()
	if err != nil {
		return archive.WriteFault(archive.OpClear, "", err)
	}
	if len(names) == 0 {
		return nil
	}

	ctx, cancel := a.context()
	defer cancel()
	if err := a.client.Del(ctx, names...).Err(); err != nil {
		return archive.WriteFault(archive.OpClear, "", err)
	}
	return nil
}

// Mode always reports persistent storage.
func (a *Archive[V]) Mode() archive.Mode {
	return archive.ModePersistent
}

// Name returns the prefix without a trailing separator.
func (a *Archive[V]) Name() string {
	return strings.TrimRight(a.cfg.prefix, ":")
}

// Copy duplicates every entry under the prefix dest and returns an
// archive over it. The copy shares the client but never closes it.
func (a *Archive[V]) Copy(dest string) (archive.Archive[V], error) {
	cfg := a.cfg
	cfg.prefix = dest
	cfg.closer = nil
	cp := &Archive[V]{client: a.client, cfg: cfg, logger: a.logger}
	if dest == a.cfg.prefix {
		return cp, nil
	}

	names, err := a.scan()
	if err != nil {
		return nil, archive.WriteFault(archive.OpCopy, dest, err)
	}
	for _, name := range names {
		if err := a.copyKey(name, dest+strings.TrimPrefix(name, a.cfg.prefix)); err != nil {
			return nil, archive.WriteFault(archive.OpCopy, dest, err)
		}
	}
	return cp, nil
}

func (a *Archive[V]) copyKey(from, to string) error {
	ctx, cancel := a.context()
	defer cancel()

	raw, err := a.client.Get(ctx, from).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", from, err)
	}
	return a.client.Set(ctx, to, raw, 0).Err()
}

// Close closes the client when a closer was configured.
func (a *Archive[V]) Close() error {
	if a.cfg.closer == nil {
		return nil
	}
	return a.cfg.closer.Close()
}

func (a *Archive[V]) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.timeout)
}

// scan returns the full Redis names of every key under the prefix.
func (a *Archive[V]) scan() ([]string, error) {
	ctx, cancel := a.context()
	defer cancel()

	match := escapeGlob(a.cfg.prefix) + "*"
	seen := make(map[string]struct{})
	var names []string
	var cursor uint64
	for {
		batch, next, err := a.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, err
		}
		// SCAN may return a key more than once.
		for _, name := range batch {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
		if next == 0 {
			return names, nil
		}
		cursor = next
	}
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
