// Package store defines the object storage interface behind the object-store
// archives.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an object does not exist in the store.
var ErrNotFound = errors.New("store: object not found")

// Store is a flat namespace of named byte objects.
// Implementations handle path formats and storage details internally.
type Store interface {
	// Read returns the content of the named object.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write creates or replaces the named object.
	Write(ctx context.Context, name string, data []byte) error

	// Delete removes the named object. Deleting a missing object succeeds.
	Delete(ctx context.Context, name string) error

	// List returns the names of all objects starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
