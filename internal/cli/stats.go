package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/kernel-memory/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show session statistics",
		Args:  cobra.NoArgs,
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	e, s, cfg := openEngine(cmd.Context())
	defer s.Close()

	stats := e.Stats(cmd.Context())
	out := struct {
		Backend string `json:"backend" yaml:"backend"`
		Path    string `json:"path,omitempty" yaml:"path,omitempty"`
		memory.Stats `yaml:",inline"`
	}{cfg.Store.Backend, cfg.Store.Path, *stats}

	printOut(out, func(w io.Writer) {
		fmt.Fprintf(w, "backend:    %s %s\n", cfg.Store.Backend, cfg.Store.Path)
		fmt.Fprintf(w, "namespace:  %q\n", stats.Namespace)
		fmt.Fprintf(w, "transcript: %d/%d entries (%d bytes)\n", stats.TranscriptEntries, stats.TranscriptLimit, stats.TranscriptBytes)
		fmt.Fprintf(w, "archive:    %d entries (%d bytes)\n", stats.ArchiveEntries, stats.ArchiveBytes)
		fmt.Fprintf(w, "subjects:   %d (%d bytes)\n", stats.Subjects, stats.SubjectBytes)
	})
}
