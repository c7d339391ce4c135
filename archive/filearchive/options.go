package filearchive

import (
	"io/fs"

	"go.uber.org/zap"

	"github.com/discochess/memo/archive/serial"
	"github.com/discochess/memo/internal/payload"
)

// DefaultPermissions is the mode of the archive file. Created parent
// directories additionally get the execute bits.
const DefaultPermissions fs.FileMode = 0o664

type config struct {
	format payload.Format
	perm   fs.FileMode
	logger *zap.Logger
}

func defaultConfig() config {
	return config{
		format: payload.Default(),
		perm:   DefaultPermissions,
		logger: zap.NewNop(),
	}
}

// Option configures an Archive.
type Option func(*config) error

// WithSerializer sets the serializer of the whole file. Default is JSON.
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

// WithZstd compresses the file with zstd.
func WithZstd(level int) Option {
	return func(c *config) error {
		c.format.SetZstd(level)
		return nil
	}
}

// WithPermissions sets the mode of the archive file.
func WithPermissions(perm fs.FileMode) Option {
	return func(c *config) error {
		c.perm = perm
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

func withConfig(cfg config) Option {
	return func(c *config) error {
		*c = cfg
		return nil
	}
}
