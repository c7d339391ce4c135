// Package blobarchive implements an archive on top of a flat object store.
//
// Each entry is one object named
//
//	<prefix><base64url(key)>.<ext>[.<codec-ext>]
//
// so keys of any shape survive listing without a separate key file. Keys
// whose encoding exceeds maxEncoded bytes are stored as
//
//	<prefix>~<md5(key)>.<ext>[.<codec-ext>]
//
// next to a <prefix>~<md5(key)>.key object holding the key, which keeps
// every name within common filename limits. The S3, GCS and local disk
// archives are thin constructors around this type.
package blobarchive

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/memo/archive"
	"github.com/discochess/memo/internal/store"
	"github.com/discochess/memo/internal/store/cachedstore"
	"github.com/discochess/memo/internal/store/cachedstore/cachestrategy/lru"
	"github.com/discochess/memo/internal/store/cachedstore/memory"
)

// Compile-time check that Archive implements archive.Archive.
var _ archive.Archive[int] = (*Archive[int])(nil)

// maxEncoded is the longest base64 key kept verbatim in an object name.
const maxEncoded = 200

const (
	digestMarker = "~"
	keyExtension = ".key"
)

// errOwner marks a digest-named object that holds a different key.
var errOwner = errors.New("blobarchive: object belongs to another key")

// Archive stores each entry as one object.
// An Archive is safe for concurrent use when its store is.
type Archive[V any] struct {
	raw     store.Store
	objects store.Store
	cfg     config
	logger  *zap.Logger
}

// New creates an archive over s.
func New[V any](s store.Store, opts ...Option) (*Archive[V], error) {
	if s == nil {
		return nil, fmt.Errorf("blobarchive: nil store")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	a := &Archive[V]{
		raw:     s,
		objects: s,
		cfg:     cfg,
		logger:  cfg.logger,
	}
	if cfg.readCache > 0 {
		strategy, err := lru.New(cfg.readCache)
		if err != nil {
			return nil, fmt.Errorf("creating read cache: %w", err)
		}
		a.objects = cachedstore.New(s, memory.New(strategy, cfg.stats))
	}
	return a, nil
}

// Get reads and decodes the object for key.
func (a *Archive[V]) Get(key string) (V, error) {
	var v V

	ctx, cancel := a.context()
	defer cancel()

	raw, err := a.read(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return v, archive.Miss(key, archive.KindAbsent, err)
		}
		a.logger.Warn("object read failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return v, archive.Miss(key, archive.KindIO, err)
	}

	if err := a.cfg.format.Decode(raw, &v); err != nil {
		a.logger.Warn("undecodable object treated as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return v, archive.Miss(key, archive.KindCorrupt, err)
	}
	return v, nil
}

// Set encodes value and writes it under key.
func (a *Archive[V]) Set(key string, value V) error {
	data, err := a.cfg.format.Encode(value)
	if err != nil {
		return archive.WriteFault(archive.OpSet, key, err)
	}

	ctx, cancel := a.context()
	defer cancel()

	name := a.object(key)
	if digest, ok := a.digestOf(name); ok {
		if err := a.objects.Write(ctx, a.keyObject(digest), []byte(key)); err != nil {
			return archive.WriteFault(archive.OpSet, key, err)
		}
	}
	if err := a.objects.Write(ctx, name, data); err != nil {
		return archive.WriteFault(archive.OpSet, key, err)
	}
	return nil
}

// Delete removes the object for key.
func (a *Archive[V]) Delete(key string) error {
	ctx, cancel := a.context()
	defer cancel()

	name := a.object(key)
	if err := a.objects.Delete(ctx, name); err != nil {
		return archive.WriteFault(archive.OpDelete, key, err)
	}
	if digest, ok := a.digestOf(name); ok {
		if err := a.objects.Delete(ctx, a.keyObject(digest)); err != nil {
			return archive.WriteFault(archive.OpDelete, key, err)
		}
	}
	return nil
}

// Contains reports whether an object exists for key.
func (a *Archive[V]) Contains(key string) bool {
	ctx, cancel := a.context()
	defer cancel()

	_, err := a.read(ctx, key)
	return err == nil
}

// Keys lists the keys of every entry under the prefix, sorted. Objects
// whose names do not decode to a key are skipped, as are digest-named
// objects whose key object cannot be read.
func (a *Archive[V]) Keys() ([]string, error) {
	names, err := a.list()
	if err != nil {
		return nil, archive.WriteFault(archive.OpKeys, "", err)
	}

	ctx, cancel := a.context()
	defer cancel()

	keys := make([]string, 0, len(names))
	for _, name := range names {
		if key, ok := a.keyOf(name); ok {
			keys = append(keys, key)
			continue
		}
		digest, ok := a.digestOf(name)
		if !ok {
			continue
		}
		key, err := a.objects.Read(ctx, a.keyObject(digest))
		if err != nil {
			a.logger.Warn("skipping object without readable key",
				zap.String("object", name),
				zap.Error(err),
			)
			continue
		}
		keys = append(keys, string(key))
	}
	slices.Sort(keys)
	return keys, nil
}

// Len returns the number of entries, or 0 when the store cannot be listed.
func (a *Archive[V]) Len() int {
	keys, err := a.Keys()
	if err != nil {
		return 0
	}
	return len(keys)
}

// Clear deletes every entry under the prefix.
func (a *Archive[V]) Clear() error {
	keys, err := a.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := a.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Mode always reports persistent storage.
func (a *Archive[V]) Mode() archive.Mode {
	return archive.ModePersistent
}

// Name returns the prefix without its trailing slash.
func (a *Archive[V]) Name() string {
	return strings.TrimSuffix(a.cfg.prefix, "/")
}

// Copy duplicates every entry under the prefix dest of the same store and
// returns an archive over the copy. Both archives share the store.
func (a *Archive[V]) Copy(dest string) (archive.Archive[V], error) {
	cfg := a.cfg
	cfg.prefix = normalizePrefix(dest)
	cp := &Archive[V]{raw: a.raw, objects: a.raw, cfg: cfg, logger: a.logger}
	if cfg.prefix == a.cfg.prefix {
		return cp, nil
	}

	names, err := a.list()
	if err != nil {
		return nil, archive.WriteFault(archive.OpCopy, dest, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.timeout*time.Duration(max(1, len(names))))
	defer cancel()

	for _, name := range names {
		data, err := a.raw.Read(ctx, name)
		if err != nil {
			return nil, archive.WriteFault(archive.OpCopy, name, err)
		}
		target := cfg.prefix + strings.TrimPrefix(name, a.cfg.prefix)
		if err := a.raw.Write(ctx, target, data); err != nil {
			return nil, archive.WriteFault(archive.OpCopy, target, err)
		}
	}
	return cp, nil
}

// Close closes the underlying store.
func (a *Archive[V]) Close() error {
	return a.raw.Close()
}

// ReadCacheStats reports read cache statistics. ok is false when the
// archive has no read cache.
func (a *Archive[V]) ReadCacheStats() (cachedstore.Stats, bool) {
	cs, ok := a.objects.(*cachedstore.Store)
	if !ok {
		return cachedstore.Stats{}, false
	}
	return cs.Stats(), true
}

func (a *Archive[V]) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.timeout)
}

func (a *Archive[V]) list() ([]string, error) {
	ctx, cancel := a.context()
	defer cancel()
	return a.objects.List(ctx, a.cfg.prefix)
}

func (a *Archive[V]) extension() string {
	return "." + a.cfg.format.Extension()
}

// object returns the object name for key.
func (a *Archive[V]) object(key string) string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(key))
	if len(encoded) > maxEncoded {
		sum := md5.Sum([]byte(key))
		encoded = digestMarker + hex.EncodeToString(sum[:])
	}
	return a.cfg.prefix + encoded + a.extension()
}

func (a *Archive[V]) keyObject(digest string) string {
	return a.cfg.prefix + digestMarker + digest + keyExtension
}

// digestOf returns the digest of a digest-named entry object.
func (a *Archive[V]) digestOf(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, a.cfg.prefix+digestMarker)
	if !ok {
		return "", false
	}
	digest, ok := strings.CutSuffix(rest, a.extension())
	if !ok || len(digest) != 2*md5.Size || strings.Contains(digest, "/") {
		return "", false
	}
	return digest, true
}

// read returns the raw object for key. A digest-named object is only
// returned when its key object names key.
func (a *Archive[V]) read(ctx context.Context, key string) ([]byte, error) {
	name := a.object(key)
	if digest, ok := a.digestOf(name); ok {
		owner, err := a.objects.Read(ctx, a.keyObject(digest))
		if err != nil {
			return nil, err
		}
		if string(owner) != key {
			return nil, fmt.Errorf("%w: %w", errOwner, store.ErrNotFound)
		}
	}
	return a.objects.Read(ctx, name)
}

// keyOf inverts object. Names in nested "directories" are not entries.
func (a *Archive[V]) keyOf(name string) (string, bool) {
	encoded, ok := strings.CutPrefix(name, a.cfg.prefix)
	if !ok {
		return "", false
	}
	encoded, ok = strings.CutSuffix(encoded, a.extension())
	if !ok || strings.Contains(encoded, "/") {
		return "", false
	}
	key, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	return string(key), true
}
