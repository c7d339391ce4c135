package dirarchive

import (
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/discochess/memo/archive/serial"
	"github.com/discochess/memo/internal/codec"
	"github.com/discochess/memo/internal/codec/gzipcodec"
	"github.com/discochess/memo/internal/codec/noopcodec"
	"github.com/discochess/memo/internal/codec/zstdcodec"
)

// DefaultPermissions is the mode used for the root and entry directories.
const DefaultPermissions fs.FileMode = 0o775

// DefaultKeyCacheSize is the number of decoded entry keys remembered by Keys.
const DefaultKeyCacheSize = 1024

// config holds the archive settings. It is kept on the archive so that Copy
// can open the destination with identical settings.
type config struct {
	serializer   serial.Serializer
	codec        codec.Codec
	perm         fs.FileMode
	logger       *zap.Logger
	keyCacheSize int
}

func defaultConfig() config {
	return config{
		serializer:   serial.JSON{},
		codec:        noopcodec.New(),
		perm:         DefaultPermissions,
		logger:       zap.NewNop(),
		keyCacheSize: DefaultKeyCacheSize,
	}
}

// Option configures an Archive.
type Option func(*config) error

// WithSerializer sets the serializer for values and recovered keys.
// Default is JSON.
func WithSerializer(s serial.Serializer) Option {
	return func(c *config) error {
		if s == nil {
			return fmt.Errorf("nil serializer")
		}
		c.serializer = s
		return nil
	}
}

// WithCompression sets a gzip compression level from 0 (none) to 9 (best).
func WithCompression(level int) Option {
	return func(c *config) error {
		if level == 0 {
			c.codec = noopcodec.New()
			return nil
		}
		gz, err := gzipcodec.NewLevel(level)
		if err != nil {
			return fmt.Errorf("compression: %w", err)
		}
		c.codec = gz
		return nil
	}
}

// WithZstd compresses entries with zstd at the given zstd-style level.
func WithZstd(level int) Option {
	return func(c *config) error {
		c.codec = zstdcodec.NewLevel(level)
		return nil
	}
}

// WithPermissions sets the mode of created directories. Files are created
// with the same mode minus the execute bits.
// Default is 0o775.
func WithPermissions(perm fs.FileMode) Option {
	return func(c *config) error {
		c.perm = perm
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

// WithKeyCacheSize sets how many decoded keys Keys remembers between calls.
// Zero disables the cache.
func WithKeyCacheSize(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return fmt.Errorf("negative key cache size: %d", n)
		}
		c.keyCacheSize = n
		return nil
	}
}

func withConfig(cfg config) Option {
	return func(c *config) error {
		*c = cfg
		return nil
	}
}
