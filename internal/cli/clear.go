package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the transcript",
		Long:  "Clear the transcript. Use --archive, --subjects or --all to clear other parts of the session.",
		Args:  cobra.NoArgs,
		Run:   runClear,
	}

	cmd.Flags().Bool("archive", false, "Clear the archive instead")
	cmd.Flags().Bool("subjects", false, "Clear learned subjects instead")
	cmd.Flags().Bool("all", false, "Clear transcript, archive and subjects")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	archive, _ := cmd.Flags().GetBool("archive")
	subjects, _ := cmd.Flags().GetBool("subjects")
	all, _ := cmd.Flags().GetBool("all")

	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	ctx := cmd.Context()
	var cleared []string
	switch {
	case all:
		e.ClearAll(ctx)
		cleared = []string{"transcript", "archive", "subjects"}
	case archive || subjects:
		if archive {
			e.ClearArchive(ctx)
			cleared = append(cleared, "archive")
		}
		if subjects {
			e.ClearSubjects(ctx)
			cleared = append(cleared, "subjects")
		}
	default:
		e.ClearTranscript(ctx)
		cleared = []string{"transcript"}
	}

	printOK(map[string]any{"cleared": cleared})
}
