package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config selects and configures the archive the commands operate on.
type Config struct {
	// Backend is one of dir, file, sqlite, redis, s3 or gcs.
	Backend string `yaml:"backend"`
	// Path is the directory, file or database of local backends.
	Path        string        `yaml:"path"`
	Serializer  string        `yaml:"serializer"`
	Compression int           `yaml:"compression"`
	Zstd        int           `yaml:"zstd"`
	Table       string        `yaml:"table"`
	Timeout     time.Duration `yaml:"timeout"`
	ReadCache   int           `yaml:"read_cache"`
	Verbose     bool          `yaml:"verbose"`

	Redis  RedisConfig  `yaml:"redis"`
	Object ObjectConfig `yaml:"object"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ObjectConfig configures the s3 and gcs backends.
type ObjectConfig struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// defaults also tell viper which keys may come from MEMO_* variables.
var defaults = map[string]any{
	"backend":         "dir",
	"path":            "./memo",
	"serializer":      "json",
	"compression":     0,
	"zstd":            0,
	"table":           "memo",
	"timeout":         "30s",
	"read_cache":      0,
	"verbose":         false,
	"redis.addr":      "localhost:6379",
	"redis.password":  "",
	"redis.db":        0,
	"redis.prefix":    "memo:",
	"object.bucket":   "",
	"object.prefix":   "",
	"object.region":   "",
	"object.endpoint": "",
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"backend":     "backend",
	"dir":         "path",
	"serializer":  "serializer",
	"compression": "compression",
	"verbose":     "verbose",
}

// loadConfig merges defaults, the config file, MEMO_* environment
// variables and flags, in increasing order of precedence.
func loadConfig(cmd *cobra.Command, file string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("memo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	decoderOpt := func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
		cfg.TagName = "yaml"
		cfg.WeaklyTypedInput = true
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg, decoderOpt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
