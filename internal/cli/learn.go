package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/kernel-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "learn [subject] [fact]",
		Short: "Learn a fact about a subject",
		Long:  "Store a fact under a subject, replacing any previous fact. The fact can follow the subject or be piped via stdin.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runLearn,
	}

	RootCmd.AddCommand(cmd)
}

func runLearn(cmd *cobra.Command, args []string) {
	subject := args[0]
	fact := argsOrStdin(args[1:])
	if strings.TrimSpace(fact) == "" {
		exitErr("learn", errors.New("fact is required (positional arg or stdin)"))
	}

	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	if err := e.LearnSubject(cmd.Context(), subject, fact); err != nil {
		exitErr("learn", err)
	}

	printOK(map[string]any{"subject": model.NormalizeSubject(subject)})
}
