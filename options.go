package memo

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/discochess/memo/archive"
	"github.com/discochess/memo/archive/dirarchive"
	"github.com/discochess/memo/internal/evict"
	"github.com/discochess/memo/internal/stats"
	"github.com/discochess/memo/keymap"
)

// Policy selects the eviction discipline of a bounded cache.
type Policy = evict.Kind

// Eviction policies.
const (
	LFU = evict.LFU
	LRU = evict.LRU
	MRU = evict.MRU
	RR  = evict.RR
)

// ParsePolicy parses "lfu", "lru", "mru" or "rr".
func ParsePolicy(s string) (Policy, error) {
	return evict.ParseKind(s)
}

// DefaultMaxSize is the table capacity used when no size option is given.
const DefaultMaxSize = 100

// Option configures a Cache.
type Option interface {
	apply(*options)
}

// options holds the cache configuration.
type options struct {
	maxSize   *int
	policy    Policy
	archive   any
	table     any
	keyCodec  any
	stats     stats.Collector
	logger    *zap.Logger
	rng       *rand.Rand
	name      string
	optionErr error
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	size := DefaultMaxSize
	return options{
		maxSize: &size,
		policy:  LFU,
		stats:   stats.NewNoop(),
		logger:  zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithMaxSize bounds the table to n entries. Zero disables retention: every
// call goes to the archive or the function.
// Default is 100.
func WithMaxSize(n int) Option {
	return optionFunc(func(o *options) {
		if n < 0 {
			o.optionErr = fmt.Errorf("negative max size: %d", n)
			return
		}
		o.maxSize = &n
	})
}

// WithUnbounded lets the table grow without limit. Entries leave it only
// through Clear or Sync.
func WithUnbounded() Option {
	return optionFunc(func(o *options) {
		o.maxSize = nil
	})
}

// WithPolicy sets the eviction policy of a bounded cache.
// Default is LFU.
func WithPolicy(p Policy) Option {
	return optionFunc(func(o *options) {
		o.policy = p
	})
}

// WithArchive attaches a as the cache's archive. The value type of a must
// match the cache's; New reports ErrOptionType otherwise.
func WithArchive[V any](a archive.Archive[V]) Option {
	return optionFunc(func(o *options) {
		o.archive = a
	})
}

// WithTable seeds the table with entries. In a bounded cache the seeded keys
// are admitted in sorted order, and a seed larger than the bound is evicted
// or spilled down to size.
func WithTable[V any](entries map[string]V) Option {
	return optionFunc(func(o *options) {
		o.table = entries
	})
}

// WithKeyCodec sets how arguments become keys. The argument type of c must
// match the cache's.
// If not set, keymap.Token is used.
func WithKeyCodec[A any](c keymap.Codec[A]) Option {
	return optionFunc(func(o *options) {
		o.keyCodec = c
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		if c != nil {
			o.stats = c
		}
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}

// WithRand sets the random source of the RR policy.
func WithRand(r *rand.Rand) Option {
	return optionFunc(func(o *options) {
		o.rng = r
	})
}

// WithName names the cache in logs.
func WithName(name string) Option {
	return optionFunc(func(o *options) {
		o.name = name
	})
}

// WithDir attaches a directory archive rooted at root.
// This is the usual way to make a cache persistent on local disk.
func WithDir[V any](root string, opts ...dirarchive.Option) (Option, error) {
	a, err := dirarchive.New[V](root, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening directory archive: %w", err)
	}
	return WithArchive[V](a), nil
}
