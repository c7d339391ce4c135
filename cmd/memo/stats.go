package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"
)

// archiveStats summarizes an archive.
type archiveStats struct {
	Backend string `json:"backend"`
	Name    string `json:"name"`
	Mode    string `json:"mode"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes,omitempty"`
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics about the archive",
		Long: `Display statistics about the archive including:
- Number of entries
- Persistence mode
- Total size on disk (local backends only)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, release, err := a.openArchive(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			st := archiveStats{
				Backend: a.cfg.Backend,
				Name:    arc.Name(),
				Mode:    arc.Mode().String(),
				Entries: arc.Len(),
			}
			switch a.cfg.Backend {
			case "dir", "file", "sqlite":
				st.Bytes = diskUsage(a.cfg.Path)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(st)
			}
			fmt.Fprintf(out, "Backend:    %s\n", st.Backend)
			fmt.Fprintf(out, "Name:       %s\n", st.Name)
			fmt.Fprintf(out, "Mode:       %s\n", st.Mode)
			fmt.Fprintf(out, "Entries:    %d\n", st.Entries)
			if st.Bytes > 0 {
				fmt.Fprintf(out, "Total size: %s\n", formatBytes(st.Bytes))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output statistics as JSON")
	return cmd
}

// diskUsage sums the sizes of the files at or below path.
func diskUsage(path string) int64 {
	var total int64
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

