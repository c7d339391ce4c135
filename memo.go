// Package memo memoizes function results in a bounded in-memory table backed
// by an optional archive.
//
// Example usage:
//
//	fib, err := memo.New(func(ctx context.Context, n int) (int, error) {
//	    return slowFib(n), nil
//	}, memo.WithMaxSize(1000), memo.WithPolicy(memo.LRU))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	v, err := fib.Call(ctx, 40)
//
// A call is answered from the table when possible (a hit), then from the
// attached archive (a load), and only then by running the function (a miss).
// When a bounded table overflows, it is spilled wholesale into the archive
// if one is attached; otherwise the eviction policy picks victims.
package memo

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/memo/archive"
	"github.com/discochess/memo/internal/evict"
	"github.com/discochess/memo/internal/stats"
	"github.com/discochess/memo/keymap"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrNoFunc indicates New was called without a function.
	ErrNoFunc = errors.New("memo: no function provided")

	// ErrOptionType indicates a typed option does not match the cache's
	// argument or value type.
	ErrOptionType = errors.New("memo: option type mismatch")

	// ErrNoArchive indicates archiving was requested but no archive has
	// been set.
	ErrNoArchive = errors.New("memo: no valid archive has been set")
)

// Func is a function whose results can be memoized.
type Func[A, V any] func(ctx context.Context, arg A) (V, error)

// Cache memoizes a single Func.
// A Cache is safe for concurrent use by multiple goroutines.
type Cache[A, V any] struct {
	fn      Func[A, V]
	codec   keymap.Codec[A]
	maxSize *int
	policy  evict.Policy
	stats   stats.Collector
	logger  *zap.Logger

	// mu guards everything below, including which archive is active.
	mu      sync.Mutex
	entries map[string]V
	active  archive.Archive[V]
	swap    archive.Archive[V]
	hit     uint64
	miss    uint64
	load    uint64
}

// New wraps fn in a cache configured by opts.
func New[A, V any](fn Func[A, V], opts ...Option) (*Cache[A, V], error) {
	if fn == nil {
		return nil, ErrNoFunc
	}

	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if cfg.optionErr != nil {
		return nil, cfg.optionErr
	}

	c := &Cache[A, V]{
		fn:      fn,
		codec:   keymap.Token[A](),
		maxSize: cfg.maxSize,
		stats:   cfg.stats,
		logger:  cfg.logger.Named("memo"),
		entries: make(map[string]V),
		active:  archive.NewNull[V](""),
		swap:    archive.NewNull[V](""),
	}
	if cfg.name != "" {
		c.logger = c.logger.With(zap.String("cache", cfg.name))
	}

	if cfg.keyCodec != nil {
		codec, ok := cfg.keyCodec.(keymap.Codec[A])
		if !ok {
			return nil, fmt.Errorf("%w: key codec %T", ErrOptionType, cfg.keyCodec)
		}
		c.codec = codec
	}

	if cfg.archive != nil {
		a, ok := cfg.archive.(archive.Archive[V])
		if !ok {
			return nil, fmt.Errorf("%w: archive %T", ErrOptionType, cfg.archive)
		}
		c.active = a
	}

	if c.bounded() {
		p, err := evict.New(cfg.policy, *c.maxSize, cfg.rng)
		if err != nil {
			return nil, fmt.Errorf("creating eviction policy: %w", err)
		}
		c.policy = p
	}

	if cfg.table != nil {
		table, ok := cfg.table.(map[string]V)
		if !ok {
			return nil, fmt.Errorf("%w: table %T", ErrOptionType, cfg.table)
		}
		c.seed(table)
	}

	c.logger.Debug("cache initialized",
		zap.String("policy", c.policyName()),
		zap.Any("maxSize", c.maxSize),
		zap.String("archive", c.active.Mode().String()),
	)

	return c, nil
}

// Call returns fn(ctx, arg), memoized. Errors from fn are returned unchanged
// and never cached.
func (c *Cache[A, V]) Call(ctx context.Context, arg A) (V, error) {
	var zero V

	key, err := c.codec.Encode(arg)
	if err != nil {
		return zero, fmt.Errorf("memo: encoding key: %w", err)
	}

	if c.disabled() {
		return c.callDisabled(ctx, key, arg)
	}

	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.hit++
		if c.policy != nil {
			c.policy.Touch(key)
		}
		c.mu.Unlock()
		c.stats.IncCounter(stats.MetricHits, 1)
		return v, nil
	}

	if v, ok := c.loadOne(key); ok {
		c.load++
		c.admit(key)
		c.mu.Unlock()
		c.stats.IncCounter(stats.MetricLoads, 1)
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.compute(ctx, arg)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	c.miss++
	_, present := c.entries[key]
	c.entries[key] = v
	if !present {
		c.admit(key)
	}
	c.mu.Unlock()
	c.stats.IncCounter(stats.MetricMisses, 1)

	return v, nil
}

// callDisabled serves a cache that retains nothing: the archive is consulted
// for the key, otherwise fn runs, and the table is emptied afterwards.
func (c *Cache[A, V]) callDisabled(ctx context.Context, key string, arg A) (V, error) {
	c.mu.Lock()
	if v, ok := c.loadOne(key); ok {
		c.load++
		clear(c.entries)
		c.reportSize()
		c.mu.Unlock()
		c.stats.IncCounter(stats.MetricLoads, 1)
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.compute(ctx, arg)
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	c.miss++
	c.entries[key] = v
	if c.attached() {
		c.dumpLocked(nil)
	}
	clear(c.entries)
	c.reportSize()
	c.mu.Unlock()
	c.stats.IncCounter(stats.MetricMisses, 1)

	return v, nil
}

func (c *Cache[A, V]) compute(ctx context.Context, arg A) (V, error) {
	start := time.Now()
	v, err := c.fn(ctx, arg)
	c.stats.ObserveHistogram(stats.MetricComputeSeconds, time.Since(start).Seconds())
	return v, err
}

// loadOne copies key from the active archive into the table.
// Must be called with mu held.
func (c *Cache[A, V]) loadOne(key string) (V, bool) {
	var zero V
	if !c.attached() {
		return zero, false
	}

	v, err := c.active.Get(key)
	if err != nil {
		if kind := archive.FaultKind(err); kind != archive.KindAbsent {
			c.stats.IncCounter(stats.MetricArchiveFaults, 1)
			c.logger.Warn("archive read failed, treating as miss",
				zap.String("key", key),
				zap.Stringer("kind", kind),
				zap.Error(err),
			)
		}
		return zero, false
	}

	c.entries[key] = v
	return v, true
}

// admit records a key that just entered the table and handles overflow.
// Must be called with mu held.
func (c *Cache[A, V]) admit(key string) {
	if c.policy != nil {
		c.policy.Admit(key)
	}
	c.overflow(key)
	c.reportSize()
}

// overflow restores the capacity bound after fresh was added.
func (c *Cache[A, V]) overflow(fresh string) {
	if !c.bounded() || len(c.entries) <= *c.maxSize {
		return
	}

	if c.attached() {
		c.dumpLocked(nil)
		clear(c.entries)
		c.policy.Reset()
		c.stats.IncCounter(stats.MetricSpills, 1)
		c.logger.Debug("table spilled to archive", zap.String("archive", c.active.Name()))
		return
	}

	victims := c.policy.Victims(fresh, slices.Sorted(maps.Keys(c.entries)))
	for _, k := range victims {
		delete(c.entries, k)
	}
	c.stats.IncCounter(stats.MetricEvictions, int64(len(victims)))
}

// seed copies table into the table and tracks its keys in sorted order.
// A seed larger than the bound overflows like any other admission.
func (c *Cache[A, V]) seed(table map[string]V) {
	maps.Copy(c.entries, table)
	if c.policy == nil {
		return
	}
	for _, k := range slices.Sorted(maps.Keys(table)) {
		c.policy.Admit(k)
	}
	for len(c.entries) > *c.maxSize {
		n := len(c.entries)
		c.overflow("")
		if len(c.entries) == n {
			break
		}
	}
	c.reportSize()
}

// Info returns a snapshot of the cache statistics.
func (c *Cache[A, V]) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := Info{
		Hit:  c.hit,
		Miss: c.miss,
		Load: c.load,
		Size: uint64(len(c.entries)),
	}
	if c.maxSize != nil {
		n := uint64(*c.maxSize)
		info.MaxSize = &n
	}
	return info
}

// Clear empties the table and the eviction bookkeeping. Statistics are
// reset unless keepStats is set. The archive is not touched.
func (c *Cache[A, V]) Clear(keepStats bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked(keepStats)
}

func (c *Cache[A, V]) clearLocked(keepStats bool) {
	clear(c.entries)
	if c.policy != nil {
		c.policy.Reset()
	}
	if !keepStats {
		c.hit, c.miss, c.load = 0, 0, 0
	}
	c.reportSize()
}

// Key returns the key arg is stored under.
func (c *Cache[A, V]) Key(arg A) (string, error) {
	return c.codec.Encode(arg)
}

// Lookup returns the table entry for arg without touching statistics or
// eviction bookkeeping.
func (c *Cache[A, V]) Lookup(arg A) (V, bool) {
	key, err := c.codec.Encode(arg)
	if err != nil {
		var zero V
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Keys lists the keys currently in the table, sorted.
func (c *Cache[A, V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.entries))
}

func (c *Cache[A, V]) bounded() bool  { return c.maxSize != nil && *c.maxSize > 0 }
func (c *Cache[A, V]) disabled() bool { return c.maxSize != nil && *c.maxSize == 0 }

func (c *Cache[A, V]) policyName() string {
	switch {
	case c.maxSize == nil:
		return "unbounded"
	case *c.maxSize == 0:
		return "disabled"
	default:
		return c.policy.Kind().String()
	}
}

func (c *Cache[A, V]) reportSize() {
	c.stats.SetGauge(stats.MetricTableSize, int64(len(c.entries)))
}
