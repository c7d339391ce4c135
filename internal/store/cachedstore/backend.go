// Package cachedstore provides a read-through caching wrapper for Store
// implementations, used in front of remote object stores.
package cachedstore

// Backend defines the interface for cache storage backends.
// Implementations handle storage and eviction strategy.
type Backend interface {
	// Get retrieves a cached object. Returns nil, false if not found.
	Get(name string) ([]byte, bool)

	// Set stores an object in the cache.
	Set(name string, data []byte)

	// Remove drops an object from the cache.
	Remove(name string)

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int // Current number of entries
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
