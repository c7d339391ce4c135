// Package dirarchive implements an archive backed by a directory tree.
//
// Each entry lives in its own subdirectory of the root:
//
//	root/K_<name>/output.<ext>   serialized value
//	root/K_<name>/input.<ext>    serialized key, present only when <name>
//	                             is a digest rather than the key itself
//
// Writes go to a fresh I_<uuid> directory which is renamed into place once
// fully populated, so readers never observe a partially written entry.
package dirarchive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/discochess/memo/archive"
	"github.com/discochess/memo/internal/codec"
)

// Compile-time check that Archive implements archive.Archive.
var _ archive.Archive[int] = (*Archive[int])(nil)

// errRename marks a failed final rename. It is logged and never returned
// from Set, since persistence is advisory.
var errRename = errors.New("dirarchive: rename into place failed")

// errOwner marks an entry directory that holds a different key, which
// happens when a plain key equals the digest name of a token key.
var errOwner = errors.New("dirarchive: entry belongs to another key")

// Archive is a persistent archive rooted at a directory.
// An Archive is safe for concurrent use; concurrent writers to the same key
// race on which rename lands last.
type Archive[V any] struct {
	root   string
	cfg    config
	logger *zap.Logger

	// names remembers directory name -> decoded key for Keys.
	names *lru.Cache[string, string]

	// beforeRename runs between populating a temp dir and renaming it.
	// Tests use it to simulate a crash.
	beforeRename func(tmp, target string) error
}

// New opens (creating if needed) the archive rooted at root.
func New[V any](root string, opts ...Option) (*Archive[V], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root directory: %w", err)
	}
	if err := os.MkdirAll(abs, cfg.perm); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	a := &Archive[V]{
		root:   abs,
		cfg:    cfg,
		logger: cfg.logger,
	}
	if cfg.keyCacheSize > 0 {
		a.names, err = lru.New[string, string](cfg.keyCacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating key cache: %w", err)
		}
	}

	return a, nil
}

// Root returns the absolute root directory.
func (a *Archive[V]) Root() string {
	return a.root
}

// Path returns the entry directory that holds key.
func (a *Archive[V]) Path(key string) string {
	return filepath.Join(a.root, entryPrefix+entryName(key))
}

// Get reads the value stored under key.
func (a *Archive[V]) Get(key string) (V, error) {
	var v V
	dir := a.Path(key)

	err := a.owns(dir, key)
	if err == nil {
		err = a.readFile(filepath.Join(dir, a.outputFile()), &v)
	}
	if err != nil {
		fault := a.readFault(key, err)
		if fault.Kind != archive.KindAbsent {
			a.logger.Warn("unreadable entry treated as miss",
				zap.String("key", key),
				zap.Stringer("kind", fault.Kind),
				zap.Error(err),
			)
		}
		return v, fault
	}
	return v, nil
}

// Set stores value under key using a temp-then-rename write.
// If populating the temp directory fails, the previous entry is left intact
// and the fault is returned. A failed final rename is logged and swallowed.
func (a *Archive[V]) Set(key string, value V) error {
	tmp := filepath.Join(a.root, tempPrefix+uuid.NewString())
	if err := os.Mkdir(tmp, a.cfg.perm); err != nil {
		return archive.WriteFault(archive.OpSet, key, fmt.Errorf("creating temp directory: %w", err))
	}

	if err := a.populate(tmp, key, value); err != nil {
		os.RemoveAll(tmp)
		return archive.WriteFault(archive.OpSet, key, err)
	}

	target := a.Path(key)
	if err := a.commit(tmp, target); err != nil {
		a.logger.Warn("entry not committed",
			zap.String("key", key),
			zap.String("temp", tmp),
			zap.Error(err),
		)
		return nil
	}

	a.forget(filepath.Base(target))
	return nil
}

// populate writes the value, and the key when needed, into dir.
func (a *Archive[V]) populate(dir, key string, value V) error {
	if err := a.writeFile(filepath.Join(dir, a.outputFile()), value); err != nil {
		return fmt.Errorf("writing value: %w", err)
	}
	if needsInput(key) {
		if err := a.writeFile(filepath.Join(dir, a.inputFile()), key); err != nil {
			return fmt.Errorf("writing key: %w", err)
		}
	}
	return nil
}

// commit replaces target with the populated tmp directory.
func (a *Archive[V]) commit(tmp, target string) error {
	if a.beforeRename != nil {
		if err := a.beforeRename(tmp, target); err != nil {
			return fmt.Errorf("%w: %v", errRename, err)
		}
	}
	if err := os.RemoveAll(target); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("%w: removing previous entry: %v", errRename, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("%w: %v", errRename, err)
	}
	return nil
}

// Delete removes the entry for key.
func (a *Archive[V]) Delete(key string) error {
	target := a.Path(key)
	a.forget(filepath.Base(target))
	if err := os.RemoveAll(target); err != nil {
		return archive.WriteFault(archive.OpDelete, key, err)
	}
	return nil
}

// Contains reports whether an entry directory exists for key.
func (a *Archive[V]) Contains(key string) bool {
	dir := a.Path(key)
	info, err := os.Stat(dir)
	return err == nil && info.IsDir() && a.owns(dir, key) == nil
}

// owns checks that the entry in dir was written for key. Token entries
// must carry key in their input file; plain entries must carry none.
func (a *Archive[V]) owns(dir, key string) error {
	input := filepath.Join(dir, a.inputFile())
	if !needsInput(key) {
		if _, err := os.Stat(input); err == nil {
			return fmt.Errorf("%w: %w", errOwner, fs.ErrNotExist)
		}
		return nil
	}

	var stored string
	if err := a.readFile(input, &stored); err != nil {
		return err
	}
	if stored != key {
		return fmt.Errorf("%w: %w", errOwner, fs.ErrNotExist)
	}
	return nil
}

// Keys recovers the original keys of all entries, sorted.
// Entries whose stored key cannot be decoded are skipped.
func (a *Archive[V]) Keys() ([]string, error) {
	dirs, err := a.entries()
	if err != nil {
		return nil, archive.WriteFault(archive.OpKeys, "", err)
	}

	keys := make([]string, 0, len(dirs))
	for _, name := range dirs {
		key, err := a.keyOf(name)
		if err != nil {
			a.logger.Warn("skipping entry with unreadable key",
				zap.String("entry", name),
				zap.Error(err),
			)
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// keyOf returns the key stored in the entry directory name.
func (a *Archive[V]) keyOf(name string) (string, error) {
	if a.names != nil {
		if key, ok := a.names.Get(name); ok {
			return key, nil
		}
	}

	input := filepath.Join(a.root, name, a.inputFile())
	key := strings.TrimPrefix(name, entryPrefix)
	if _, err := os.Stat(input); err == nil {
		if err := a.readFile(input, &key); err != nil {
			return "", err
		}
	}

	if a.names != nil {
		a.names.Add(name, key)
	}
	return key, nil
}

// Len returns the number of entry directories.
func (a *Archive[V]) Len() int {
	dirs, err := a.entries()
	if err != nil {
		return 0
	}
	return len(dirs)
}

// Clear removes every entry and any abandoned temp directory. Errors are
// logged and otherwise ignored; the root itself is kept.
func (a *Archive[V]) Clear() error {
	children, err := os.ReadDir(a.root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.logger.Warn("clear: listing root", zap.String("root", a.root), zap.Error(err))
	}
	for _, child := range children {
		path := filepath.Join(a.root, child.Name())
		if err := os.RemoveAll(path); err != nil {
			a.logger.Warn("clear: removing", zap.String("path", path), zap.Error(err))
		}
	}
	if a.names != nil {
		a.names.Purge()
	}
	if err := os.MkdirAll(a.root, a.cfg.perm); err != nil {
		a.logger.Warn("clear: recreating root", zap.String("root", a.root), zap.Error(err))
	}
	return nil
}

// Mode always reports persistent storage.
func (a *Archive[V]) Mode() archive.Mode {
	return archive.ModePersistent
}

// Name returns the base name of the root directory.
func (a *Archive[V]) Name() string {
	return filepath.Base(a.root)
}

// Copy duplicates the directory tree into dest and opens it with the same
// settings. Copying onto the archive's own root returns a new handle on the
// same tree. dest must not already contain files.
func (a *Archive[V]) Copy(dest string) (archive.Archive[V], error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, archive.WriteFault(archive.OpCopy, dest, err)
	}
	if abs != a.root {
		if err := os.CopyFS(abs, os.DirFS(a.root)); err != nil {
			return nil, archive.WriteFault(archive.OpCopy, dest, err)
		}
	}
	cp, err := New[V](abs, withConfig(a.cfg))
	if err != nil {
		return nil, archive.WriteFault(archive.OpCopy, dest, err)
	}
	return cp, nil
}

// entries lists the K_ directories directly under root.
func (a *Archive[V]) entries() ([]string, error) {
	children, err := os.ReadDir(a.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, child := range children {
		if child.IsDir() && strings.HasPrefix(child.Name(), entryPrefix) {
			names = append(names, child.Name())
		}
	}
	return names, nil
}

func (a *Archive[V]) forget(name string) {
	if a.names != nil {
		a.names.Remove(name)
	}
}

func (a *Archive[V]) extension() string {
	ext := a.cfg.serializer.Extension()
	if cext := a.cfg.codec.Extension(); cext != "" {
		ext += "." + cext
	}
	return ext
}

func (a *Archive[V]) outputFile() string { return outputBase + "." + a.extension() }
func (a *Archive[V]) inputFile() string  { return inputBase + "." + a.extension() }

// decodeError marks failures that happened after the bytes were read.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func (a *Archive[V]) readFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	data, err := codec.Decompress(a.cfg.codec, raw)
	if err != nil {
		return &decodeError{err}
	}
	if err := a.cfg.serializer.Unmarshal(data, v); err != nil {
		return &decodeError{fmt.Errorf("decoding %s: %w", filepath.Base(path), err)}
	}
	return nil
}

func (a *Archive[V]) writeFile(path string, v any) error {
	data, err := a.cfg.serializer.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	data, err = codec.Compress(a.cfg.codec, data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, a.cfg.perm&0o666)
}

// readFault classifies a read error.
func (a *Archive[V]) readFault(key string, err error) *archive.Fault {
	var de *decodeError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return archive.Miss(key, archive.KindAbsent, err)
	case errors.As(err, &de):
		return archive.Miss(key, archive.KindCorrupt, err)
	default:
		return archive.Miss(key, archive.KindIO, err)
	}
}
