// Package memory implements an in-memory cache backend.
package memory

import (
	"sync/atomic"

	"github.com/discochess/memo/internal/stats"
	"github.com/discochess/memo/internal/store/cachedstore"
	"github.com/discochess/memo/internal/store/cachedstore/cachestrategy"
)

// Compile-time check that Backend implements cachedstore.Backend.
var _ cachedstore.Backend = (*Backend)(nil)

// Backend is a thread-safe in-memory cache backend.
type Backend struct {
	strategy  cachestrategy.Strategy
	collector stats.Collector

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a new memory backend with the given eviction strategy.
// The collector is optional; if nil, a no-op collector is used.
func New(strategy cachestrategy.Strategy, collector stats.Collector) *Backend {
	if collector == nil {
		collector = stats.NewNoop()
	}
	return &Backend{
		strategy:  strategy,
		collector: collector,
	}
}

// Get returns the cached bytes for name.
func (b *Backend) Get(name string) ([]byte, bool) {
	val, ok := b.strategy.Get(name)
	if ok {
		b.hits.Add(1)
		b.collector.IncCounter(stats.MetricReadCacheHits, 1)
		return val, true
	}
	b.misses.Add(1)
	b.collector.IncCounter(stats.MetricReadCacheMisses, 1)
	return nil, false
}

// Set caches data under name.
func (b *Backend) Set(name string, data []byte) {
	b.strategy.Add(name, data)
	b.collector.SetGauge(stats.MetricReadCacheSize, int64(b.strategy.Len()))
}

// Remove evicts name from the cache.
func (b *Backend) Remove(name string) {
	if b.strategy.Remove(name) {
		b.collector.SetGauge(stats.MetricReadCacheSize, int64(b.strategy.Len()))
	}
}

// Stats returns current cache statistics.
func (b *Backend) Stats() cachedstore.Stats {
	return cachedstore.Stats{
		Hits:   b.hits.Load(),
		Misses: b.misses.Load(),
		Size:   b.strategy.Len(),
	}
}

// Len returns the number of items in the cache.
func (b *Backend) Len() int {
	return b.strategy.Len()
}
