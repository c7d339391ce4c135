// Package memofx provides fx wiring for memoized functions backed by a
// directory archive or, when the graph supplies a store.Store, by blob
// archives in that store.
package memofx

import (
	"context"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/memo"
	"github.com/discochess/memo/archive/blobarchive"
	"github.com/discochess/memo/archive/dirarchive"
	"github.com/discochess/memo/archive/serial"
	"github.com/discochess/memo/internal/stats"
	"github.com/discochess/memo/internal/stats/logger"
	promstats "github.com/discochess/memo/internal/stats/prometheus"
	"github.com/discochess/memo/internal/store"
)

// Config holds configuration shared by every cache the module provides.
type Config struct {
	// Dir is the root of the directory archive. Empty disables archiving.
	Dir string

	// MaxSize bounds each table. Nil uses memo.DefaultMaxSize; zero
	// disables the table.
	MaxSize *int

	// Unbounded lets tables grow without limit. Overrides MaxSize.
	Unbounded bool

	// Policy is the eviction policy name. Default is "lfu".
	Policy string

	// Serializer is "json", "gob" or "yaml". Default is "json".
	Serializer string

	// Compression is the gzip level, 0 for none.
	Compression int

	// ReadCache is the number of decoded objects kept in front of a store
	// archive. Ignored for directory archives.
	ReadCache int

	// DumpOnStop copies every table into its archive when the app stops.
	DumpOnStop bool
}

// Module provides the stats collector used by caches registered with
// Provide. Requires a Config and a *zap.Logger. When a
// *prometheus.Registry is supplied, metrics are exported there; otherwise
// they are logged.
var Module = fx.Module("memo",
	fx.Provide(newStatsCollector),
)

// StatsParams holds dependencies for the stats collector.
type StatsParams struct {
	fx.In

	Logger   *zap.Logger
	Registry *prometheus.Registry `optional:"true"`
}

func newStatsCollector(p StatsParams) stats.Collector {
	if p.Registry != nil {
		return promstats.New(p.Registry, nil)
	}
	return logger.New(p.Logger.Named("memo.stats"))
}

// Params holds dependencies for creating a cache.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
	Store     store.Store `optional:"true"`
}

// archived reports whether caches get an archive.
func (p Params) archived() bool {
	return p.Store != nil || p.Config.Dir != ""
}

// Provide registers a constructor for a *memo.Cache[A, V] wrapping fn.
// The archive for the cache lives under name: a subdirectory of Config.Dir,
// or an object prefix when a store.Store is supplied.
// opts are applied after the options derived from Config.
func Provide[A, V any](name string, fn memo.Func[A, V], opts ...memo.Option) fx.Option {
	return fx.Provide(func(p Params) (*memo.Cache[A, V], error) {
		return newCache(p, name, fn, opts)
	})
}

func newCache[A, V any](p Params, name string, fn memo.Func[A, V], extra []memo.Option) (*memo.Cache[A, V], error) {
	opts, err := cacheOptions[V](p, name)
	if err != nil {
		return nil, err
	}

	c, err := memo.New(fn, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}

	if p.Config.DumpOnStop && p.archived() {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				c.Dump()
				return nil
			},
		})
	}
	return c, nil
}

func cacheOptions[V any](p Params, name string) ([]memo.Option, error) {
	opts := []memo.Option{
		memo.WithName(name),
		memo.WithStats(p.Collector),
		memo.WithLogger(p.Logger),
	}

	switch {
	case p.Config.Unbounded:
		opts = append(opts, memo.WithUnbounded())
	case p.Config.MaxSize != nil:
		opts = append(opts, memo.WithMaxSize(*p.Config.MaxSize))
	}

	if p.Config.Policy != "" {
		policy, err := memo.ParsePolicy(p.Config.Policy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, memo.WithPolicy(policy))
	}

	if !p.archived() {
		return opts, nil
	}

	s, err := serial.ByName(p.Config.Serializer)
	if err != nil {
		return nil, err
	}

	if p.Store != nil {
		a, err := blobarchive.New[V](p.Store,
			blobarchive.WithPrefix(name),
			blobarchive.WithSerializer(s),
			blobarchive.WithCompression(p.Config.Compression),
			blobarchive.WithReadCache(p.Config.ReadCache),
			blobarchive.WithStats(p.Collector),
			blobarchive.WithLogger(p.Logger.Named("archive")),
		)
		if err != nil {
			return nil, err
		}
		return append(opts, memo.WithArchive[V](a)), nil
	}

	dir, err := memo.WithDir[V](filepath.Join(p.Config.Dir, name),
		dirarchive.WithSerializer(s),
		dirarchive.WithCompression(p.Config.Compression),
		dirarchive.WithLogger(p.Logger.Named("archive")),
	)
	if err != nil {
		return nil, err
	}
	return append(opts, dir), nil
}
