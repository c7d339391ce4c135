package cachedstore

import (
	"context"

	"github.com/discochess/memo/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store wraps another Store with caching.
type Store struct {
	underlying store.Store
	backend    Backend
}

// New creates a new cached store wrapping the given store.
func New(underlying store.Store, backend Backend) *Store {
	return &Store{
		underlying: underlying,
		backend:    backend,
	}
}

// Read reads an object, checking the cache first.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.backend.Get(name); ok {
		return data, nil
	}

	data, err := s.underlying.Read(ctx, name)
	if err != nil {
		return nil, err
	}

	s.backend.Set(name, data)
	return data, nil
}

// Write writes through to the underlying store and refreshes the cache.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	s.backend.Remove(name)
	if err := s.underlying.Write(ctx, name, data); err != nil {
		return err
	}
	s.backend.Set(name, data)
	return nil
}

// Delete removes the object from the underlying store and the cache.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.backend.Remove(name)
	return s.underlying.Delete(ctx, name)
}

// List always asks the underlying store.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	return s.underlying.List(ctx, prefix)
}

// Close closes the underlying store.
func (s *Store) Close() error {
	return s.underlying.Close()
}

// Stats returns cache statistics.
func (s *Store) Stats() Stats {
	return s.backend.Stats()
}
