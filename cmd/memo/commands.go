package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/discochess/memo/archive"
	"github.com/discochess/memo/archive/sqlarchive"
)

func newKeysCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the keys stored in the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, release, err := a.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			keys, err := arc.Keys()
			if err != nil {
				return fmt.Errorf("listing keys: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if keys == nil {
					keys = []string{}
				}
				return json.NewEncoder(out).Encode(keys)
			}
			for _, k := range keys {
				fmt.Fprintln(out, k)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output keys as a JSON array")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, release, err := a.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			v, err := arc.Get(args[0])
			if err != nil {
				if kind := archive.FaultKind(err); kind != archive.KindAbsent {
					return fmt.Errorf("key %q unreadable (%s): %w", args[0], kind, errors.Unwrap(err))
				}
				return fmt.Errorf("key %q not found", args[0])
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm KEY...",
		Short: "Delete entries from the archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, release, err := a.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			removed := 0
			for _, key := range args {
				if !arc.Contains(key) {
					continue
				}
				if err := arc.Delete(key); err != nil {
					return fmt.Errorf("deleting %q: %w", key, err)
				}
				removed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d of %d keys\n", removed, len(args))
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry from the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}

			arc, release, err := a.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			n := arc.Len()
			if err := arc.Clear(); err != nil {
				return fmt.Errorf("clearing archive: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d entries\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy DEST",
		Short: "Copy the archive to DEST",
		Long: `Copy the archive to DEST and report how many entries the copy holds.

DEST is interpreted by the backend: a directory for dir, a file for file and
sqlite, and a key prefix for redis, s3 and gcs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, release, err := a.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			cp, err := arc.Copy(args[0])
			if err != nil {
				return fmt.Errorf("copying archive: %w", err)
			}
			// Only SQLite copies own a separate handle.
			if db, ok := cp.(*sqlarchive.Archive[document]); ok {
				defer db.Close()
			}
			n := cp.Len()
			fmt.Fprintf(cmd.OutOrStdout(), "copied %d entries to %s\n", n, args[0])
			return nil
		},
	}
}
