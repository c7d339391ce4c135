package archive

import (
	"maps"
	"slices"
	"sync"
)

// Compile-time check that Dict implements Archive.
var _ Archive[int] = (*Dict[int])(nil)

// Dict is an in-memory archive. It satisfies the archive contract without
// persisting anything, which makes it the zero-configuration choice when an
// archive is wanted only for its dictionary interface.
type Dict[V any] struct {
	name string

	mu      sync.RWMutex
	entries map[string]V
}

// NewDict returns an empty dictionary archive with an optional name.
func NewDict[V any](name string) *Dict[V] {
	return &Dict[V]{
		name:    name,
		entries: make(map[string]V),
	}
}

// DictOf returns a dictionary archive seeded with a copy of entries.
func DictOf[V any](name string, entries map[string]V) *Dict[V] {
	d := NewDict[V](name)
	maps.Copy(d.entries, entries)
	return d
}

// Get returns the value stored under key.
func (d *Dict[V]) Get(key string) (V, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.entries[key]
	if !ok {
		return v, Miss(key, KindAbsent, nil)
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (d *Dict[V]) Set(key string, value V) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key] = value
	return nil
}

// Delete removes key. Deleting a missing key succeeds.
func (d *Dict[V]) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, key)
	return nil
}

// Contains reports whether key is stored.
func (d *Dict[V]) Contains(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[key]
	return ok
}

// Keys returns the stored keys in sorted order.
func (d *Dict[V]) Keys() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.entries)), nil
}

// Len returns the number of stored entries.
func (d *Dict[V]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Clear removes every entry.
func (d *Dict[V]) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.entries)
	return nil
}

// Mode returns ModeVolatile.
func (d *Dict[V]) Mode() Mode { return ModeVolatile }

// Name returns the name given to NewDict.
func (d *Dict[V]) Name() string { return d.name }

// Copy returns an independent dictionary archive named dest.
func (d *Dict[V]) Copy(dest string) (Archive[V], error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return DictOf(dest, d.entries), nil
}
