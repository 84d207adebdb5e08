package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/kernel-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "facts [subject]",
		Short: "Show the fact learned for a subject",
		Args:  cobra.MinimumNArgs(1),
		Run:   runFacts,
	}

	RootCmd.AddCommand(cmd)
}

func runFacts(cmd *cobra.Command, args []string) {
	subject := model.NormalizeSubject(strings.Join(args, " "))

	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	fact, ok := e.GetFacts(cmd.Context(), subject)
	if !ok {
		exitErr("facts", fmt.Errorf("subject %q not learned", subject))
	}

	printOut(map[string]string{"subject": subject, "fact": fact}, func(w io.Writer) {
		fmt.Fprintln(w, fact)
	})
}
