// Package memstore provides an in-memory store implementation for testing.
package memstore

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/discochess/memo/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is an in-memory store for testing.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

// Read returns a copy of the named object.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return slices.Clone(data), nil
}

// Write stores a copy of data so caller mutations do not leak in.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = slices.Clone(data)
	return nil
}

// Delete removes the named object.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	return nil
}

// List returns the sorted names under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for _, name := range slices.Sorted(maps.Keys(s.objects)) {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
