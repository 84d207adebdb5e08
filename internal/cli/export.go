package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the session",
		Long:  "Export the transcript, archive and learned subjects of the session as JSON, or YAML with -f yaml.",
		Args:  cobra.NoArgs,
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	printOut(e.Export(cmd.Context()), nil)
}
