package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/kernel-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Show the chat transcript",
		Long:  "Show the transcript oldest first. With --archive, show entries evicted from it instead.",
		Args:  cobra.NoArgs,
		Run:   runTranscript,
	}

	cmd.Flags().Bool("archive", false, "Show the archive")
	cmd.Flags().IntP("limit", "l", 0, "Show only the newest N entries")

	RootCmd.AddCommand(cmd)
}

func runTranscript(cmd *cobra.Command, args []string) {
	archive, _ := cmd.Flags().GetBool("archive")
	limit, _ := cmd.Flags().GetInt("limit")

	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	var entries []model.ChatEntry
	if archive {
		entries = e.LoadArchive(cmd.Context())
	} else {
		entries = e.LoadTranscript(cmd.Context())
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	printEntries(entries)
}
