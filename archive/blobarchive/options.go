package blobarchive

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/memo/archive/serial"
	"github.com/discochess/memo/internal/payload"
	"github.com/discochess/memo/internal/stats"
)

// DefaultTimeout bounds each store operation.
const DefaultTimeout = 30 * time.Second

type config struct {
	prefix    string
	format    payload.Format
	timeout   time.Duration
	readCache int
	stats     stats.Collector
	logger    *zap.Logger
}

func defaultConfig() config {
	return config{
		format:  payload.Default(),
		timeout: DefaultTimeout,
		stats:   stats.NewNoop(),
		logger:  zap.NewNop(),
	}
}

// Option configures an Archive.
type Option func(*config) error

// WithPrefix places every object of the archive under prefix. The prefix
// also names the archive.
func WithPrefix(prefix string) Option {
	return func(c *config) error {
		c.prefix = normalizePrefix(prefix)
		return nil
	}
}

// WithSerializer sets the value serializer. Default is JSON.
func WithSerializer(s serial.Serializer) Option {
	return func(c *config) error {
		return c.format.SetSerializer(s)
	}
}

// WithCompression sets a gzip level from 0 (none) to 9.
func WithCompression(level int) Option {
	return func(c *config) error {
		return c.format.SetGzip(level)
	}
}

// WithZstd compresses objects with zstd.
func WithZstd(level int) Option {
	return func(c *config) error {
		c.format.SetZstd(level)
		return nil
	}
}

// WithTimeout bounds each call to the store.
// Default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("non-positive timeout: %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithReadCache keeps up to n recently read objects in memory.
func WithReadCache(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return fmt.Errorf("negative read cache size: %d", n)
		}
		c.readCache = n
		return nil
	}
}

// WithStats sets the collector that receives read cache metrics.
func WithStats(collector stats.Collector) Option {
	return func(c *config) error {
		if collector != nil {
			c.stats = collector
		}
		return nil
	}
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
