package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "List learned subjects",
		Args:  cobra.NoArgs,
		Run:   runSubjects,
	}

	RootCmd.AddCommand(cmd)
}

func runSubjects(cmd *cobra.Command, args []string) {
	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	printSubjects(e.ListSubjects(cmd.Context()))
}
