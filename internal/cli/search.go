package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the transcript by keyword",
		Long:  "Case-insensitive substring search over the transcript, or over learned subjects and facts with --subjects.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().Bool("subjects", false, "Search learned subjects and facts")
	cmd.Flags().Bool("archive", false, "Search the archive")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	subjects, _ := cmd.Flags().GetBool("subjects")
	archive, _ := cmd.Flags().GetBool("archive")
	query := strings.Join(args, " ")

	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	switch {
	case subjects:
		printSubjects(e.SearchSubjects(cmd.Context(), query))
	case archive:
		printEntries(e.SearchArchive(cmd.Context(), query))
	default:
		printEntries(e.SearchTranscript(cmd.Context(), query))
	}
}
