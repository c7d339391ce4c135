// Package diskstore implements a store over a local directory.
// Object names map to relative file paths; "/" separates directories.
package diskstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/discochess/memo/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is a disk-based filesystem storage backend.
type Store struct {
	root string
}

// New creates a new disk store rooted at the given directory.
// The directory must exist.
func New(root string) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	return &Store{root: root}, nil
}

// Read returns the content of the named object.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	// Check for cancellation before starting I/O.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("reading object: %w", err)
	}
	return data, nil
}

// Write replaces the named object through a temp file and rename.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing object: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming object: %w", err)
	}
	return nil
}

// Delete removes the named file. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}

// List walks the tree and returns object names starting with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if name := filepath.ToSlash(rel); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

// Close releases any resources held by the store.
func (s *Store) Close() error {
	return nil
}

// path maps an object name to a file below root.
func (s *Store) path(name string) (string, error) {
	if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}
