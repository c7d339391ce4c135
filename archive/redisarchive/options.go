package redisarchive

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/memo/archive/serial"
	"github.com/discochess/memo/internal/payload"
)

const (
	// DefaultPrefix namespaces the keys written by an archive.
	DefaultPrefix = "memo:"
	// DefaultTimeout bounds every command.
	DefaultTimeout = time.Second
)

type config struct {
	prefix  string
	timeout time.Duration
	format  payload.Format
	closer  io.Closer
	logger  *zap.Logger
}

func defaultConfig() config {
	return config{
		prefix:  DefaultPrefix,
		timeout: DefaultTimeout,
		format:  payload.Default(),
		logger:  zap.NewNop(),
	}
}

// Option configures an Archive.
type Option func(*config) error

// WithPrefix sets the namespace prepended to every Redis key.
// Default is "memo:".
func WithPrefix(prefix string) Option {
	return func(c *config) error {
		c.prefix = prefix
		return nil
	}
}

// WithTimeout bounds every command.
// Default is 1 second.
func WithTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("non-positive timeout: %v", d)
		}
		c.timeout = d
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

// WithCloser makes Close close the client.
func WithCloser(closer io.Closer) Option {
	return func(c *config) error {
		c.closer = closer
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
