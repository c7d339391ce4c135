// Package archive defines the backing-store contract shared by every
// memoization archive, together with the null and in-memory variants.
//
// An archive maps canonical string keys to values of type V. Archives are
// advisory: a read that fails for any reason is reported as ErrNotFound so
// callers can treat it as a cache miss, while the attached *Fault keeps the
// underlying cause available to errors.As for diagnostics.
package archive

import (
	"errors"
	"fmt"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrNotFound indicates the key is not held by the archive.
	ErrNotFound = errors.New("archive: key not found")

	// ErrToggle indicates an attempt to switch persistence on a bare archive.
	// Only a memoization cache, which keeps a swap slot, can be toggled.
	ErrToggle = errors.New("archive: cannot toggle archive")
)

// Mode classifies what an archive does with the data it is given.
type Mode int

const (
	// ModeNull archives are permanently empty and discard all writes.
	ModeNull Mode = iota
	// ModeVolatile archives keep entries in process memory only.
	ModeVolatile
	// ModePersistent archives outlive the process.
	ModePersistent
)

// String returns the mode's name.
func (m Mode) String() string {
	switch m {
	case ModeNull:
		return "null"
	case ModeVolatile:
		return "volatile"
	case ModePersistent:
		return "persistent"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Archive is a key-value backing store for memoized results.
// Implementations must be safe for concurrent use by multiple goroutines.
type Archive[V any] interface {
	// Get returns the value stored under key. Any failure, including I/O
	// and decoding faults, satisfies errors.Is(err, ErrNotFound).
	Get(key string) (V, error)

	// Set stores value under key, replacing any previous entry.
	Set(key string, value V) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Contains reports whether key is present.
	Contains(key string) bool

	// Keys lists every key currently stored.
	Keys() ([]string, error)

	// Len returns the number of stored entries.
	Len() int

	// Clear removes every entry.
	Clear() error

	// Mode reports the archive's persistence class.
	Mode() Mode

	// Name identifies the archive; empty when it has no name.
	Name() string

	// Copy returns an independent archive holding the same entries,
	// located at dest (a directory, file, table or prefix depending on
	// the backend).
	Copy(dest string) (Archive[V], error)
}

// Archived reports whether a is persistent.
func Archived[V any](a Archive[V]) bool {
	return a != nil && a.Mode() == ModePersistent
}

// Toggle mirrors the cache-level archived(on) operation for a bare archive.
// Bare archives have no swap slot, so every request fails with ErrToggle.
func Toggle[V any](a Archive[V], on bool) error {
	return fmt.Errorf("%w (%s archive, requested %t)", ErrToggle, a.Mode(), on)
}

// Entries reads every entry of a. Keys whose values cannot be read are
// skipped, matching the miss semantics of Get.
func Entries[V any](a Archive[V]) (map[string]V, error) {
	keys, err := a.Keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string]V, len(keys))
	for _, k := range keys {
		v, err := a.Get(k)
		if err != nil {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// CopyInto writes every entry of src into dst and returns the first write error.
func CopyInto[V any](dst, src Archive[V]) error {
	entries, err := Entries(src)
	if err != nil {
		return fmt.Errorf("reading source archive: %w", err)
	}
	for k, v := range entries {
		if err := dst.Set(k, v); err != nil {
			return fmt.Errorf("copying %q: %w", k, err)
		}
	}
	return nil
}
