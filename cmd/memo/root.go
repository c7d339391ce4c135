package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries state shared by every sub-command.
type app struct {
	configFile string
	cfg        *Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "memo",
		Short: "Inspect and maintain memoization archives",
		Long: `memo works on the archives written by memoized functions: directory
trees, single files, SQLite tables, Redis keyspaces and S3 or GCS prefixes.

Values are decoded as generic documents and printed as JSON.

Settings come from flags, MEMO_* environment variables (MEMO_REDIS_ADDR for
redis.addr) and an optional YAML config file.

Examples:
  # List the keys of a directory archive
  memo --dir ./cache keys

  # Show one entry
  memo --dir ./cache get 42

  # Back up a SQLite archive
  memo --backend sqlite --dir memo.db copy backup.db`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if cfg.Verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				a.logger = l
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML config file")
	flags.StringP("backend", "b", "dir", "archive backend: dir, file, sqlite, redis, s3 or gcs")
	flags.StringP("dir", "d", "./memo", "archive directory, file or database")
	flags.String("serializer", "json", "value serializer: json, gob or yaml")
	flags.Int("compression", 0, "gzip compression level, 0 for none")
	flags.BoolP("verbose", "v", false, "enable verbose output")

	cmd.AddCommand(
		newKeysCmd(a),
		newGetCmd(a),
		newRmCmd(a),
		newClearCmd(a),
		newCopyCmd(a),
		newStatsCmd(a),
	)
	return cmd
}
