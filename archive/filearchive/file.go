// Package filearchive implements an archive held in a single file.
//
// The file contains the whole key-value map. Every mutation reads the map,
// changes it and writes it back through a temp file renamed into place, all
// under an advisory lock on "<path>.lock" so that several processes can
// share one archive.
package filearchive

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/discochess/memo/archive"
	"github.com/discochess/memo/internal/payload"
)

// Compile-time check that Archive implements archive.Archive.
var _ archive.Archive[int] = (*Archive[int])(nil)

const (
	lockSuffix = ".lock"
	tempPrefix = "I_"
)

// Archive is a persistent archive stored in one file.
type Archive[V any] struct {
	path   string
	cfg    config
	logger *zap.Logger

	// mu serializes access within the process; lock across processes.
	mu   sync.Mutex
	lock *flock.Flock
}

// New opens the archive file at path, creating it empty if needed.
func New[V any](path string, opts ...Option) (*Archive[V], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving archive path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), cfg.perm|0o111); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	a := &Archive[V]{
		path:   abs,
		cfg:    cfg,
		logger: cfg.logger,
		lock:   flock.New(abs + lockSuffix),
	}

	err = a.update(func(map[string]V) bool {
		_, statErr := os.Stat(abs)
		return errors.Is(statErr, fs.ErrNotExist)
	})
	if err != nil {
		return nil, fmt.Errorf("initializing archive file: %w", err)
	}
	return a, nil
}

// Path returns the absolute path of the archive file.
func (a *Archive[V]) Path() string {
	return a.path
}

// Get returns the value stored under key.
func (a *Archive[V]) Get(key string) (V, error) {
	var zero V

	entries, err := a.snapshot()
	if err != nil {
		kind := archive.KindIO
		if payload.IsDecodeError(err) {
			kind = archive.KindCorrupt
		}
		a.logger.Warn("unreadable archive file treated as miss",
			zap.String("path", a.path),
			zap.String("key", key),
			zap.Error(err),
		)
		return zero, archive.Miss(key, kind, err)
	}

	v, ok := entries[key]
	if !ok {
		return zero, archive.Miss(key, archive.KindAbsent, nil)
	}
	return v, nil
}

// Set stores value under key.
func (a *Archive[V]) Set(key string, value V) error {
	err := a.update(func(entries map[string]V) bool {
		entries[key] = value
		return true
	})
	if err != nil {
		return archive.WriteFault(archive.OpSet, key, err)
	}
	return nil
}

// Delete removes key.
func (a *Archive[V]) Delete(key string) error {
	err := a.update(func(entries map[string]V) bool {
		if _, ok := entries[key]; !ok {
			return false
		}
		delete(entries, key)
		return true
	})
	if err != nil {
		return archive.WriteFault(archive.OpDelete, key, err)
	}
	return nil
}

// Contains reports whether key is stored.
func (a *Archive[V]) Contains(key string) bool {
	entries, err := a.snapshot()
	if err != nil {
		return false
	}
	_, ok := entries[key]
	return ok
}

// Keys lists the stored keys, sorted.
func (a *Archive[V]) Keys() ([]string, error) {
	entries, err := a.snapshot()
	if err != nil {
		return nil, archive.WriteFault(archive.OpKeys, "", err)
	}
	return slices.Sorted(maps.Keys(entries)), nil
}

// Len returns the number of entries, or 0 when the file cannot be read.
func (a *Archive[V]) Len() int {
	entries, err := a.snapshot()
	if err != nil {
		return 0
	}
	return len(entries)
}

// Clear replaces the file with an empty map.
func (a *Archive[V]) Clear() error {
	err := a.update(func(entries map[string]V) bool {
		clear(entries)
		return true
	})
	if err != nil {
		return archive.WriteFault(archive.OpClear, "", err)
	}
	return nil
}

// Mode always reports persistent storage.
func (a *Archive[V]) Mode() archive.Mode {
	return archive.ModePersistent
}

// Name returns the base name of the archive file.
func (a *Archive[V]) Name() string {
	return filepath.Base(a.path)
}

// Copy writes the current entries to the file dest and opens it with the
// same settings.
func (a *Archive[V]) Copy(dest string) (archive.Archive[V], error) {
	entries, err := a.snapshot()
	if err != nil {
		return nil, archive.WriteFault(archive.OpCopy, dest, err)
	}

	cp, err := New[V](dest, withConfig(a.cfg))
	if err != nil {
		return nil, archive.WriteFault(archive.OpCopy, dest, err)
	}
	if cp.path == a.path {
		return cp, nil
	}
	err = cp.update(func(m map[string]V) bool {
		clear(m)
		maps.Copy(m, entries)
		return true
	})
	if err != nil {
		return nil, archive.WriteFault(archive.OpCopy, dest, err)
	}
	return cp, nil
}

// snapshot reads the map under a shared lock.
func (a *Archive[V]) snapshot() (map[string]V, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.lock.RLock(); err != nil {
		return nil, fmt.Errorf("locking archive: %w", err)
	}
	defer a.lock.Unlock()

	return a.read()
}

// update runs fn on the current map under an exclusive lock and writes the
// map back if fn reports a change. An unreadable file is replaced rather
// than blocking every future write.
func (a *Archive[V]) update(fn func(map[string]V) bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.lock.Lock(); err != nil {
		return fmt.Errorf("locking archive: %w", err)
	}
	defer a.lock.Unlock()

	entries, err := a.read()
	if err != nil {
		if !payload.IsDecodeError(err) {
			return err
		}
		a.logger.Warn("undecodable archive file, starting from an empty map",
			zap.String("path", a.path),
			zap.Error(err),
		)
		entries = make(map[string]V)
	}

	if !fn(entries) {
		return nil
	}
	return a.write(entries)
}

func (a *Archive[V]) read() (map[string]V, error) {
	entries := make(map[string]V)

	raw, err := os.ReadFile(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading archive file: %w", err)
	}
	if err := a.cfg.format.Decode(raw, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]V)
	}
	return entries, nil
}

// write replaces the file through a temp file in the same directory.
func (a *Archive[V]) write(entries map[string]V) error {
	data, err := a.cfg.format.Encode(entries)
	if err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(a.path), tempPrefix+uuid.NewString())
	if err := os.WriteFile(tmp, data, a.cfg.perm); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, a.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
