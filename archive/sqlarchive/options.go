package sqlarchive

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/discochess/memo/archive/serial"
	"github.com/discochess/memo/internal/payload"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "memo"

type config struct {
	table  string
	format payload.Format
	logger *zap.Logger
}

func defaultConfig() config {
	return config{
		table:  DefaultTable,
		format: payload.Default(),
		logger: zap.NewNop(),
	}
}

// Option configures an Archive.
type Option func(*config) error

// WithTable sets the table name. Names are limited to ASCII letters,
// digits and underscores.
func WithTable(name string) Option {
	return func(c *config) error {
		if !validTable(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
		c.table = name
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

// WithZstd compresses values with zstd.
func WithZstd(level int) Option {
	return func(c *config) error {
		c.format.SetZstd(level)
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

func validTable(name string) bool {
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		return false
	}
	for i := 0; i < len(name); i++ {
		b := name[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_':
		default:
			return false
		}
	}
	return true
}
