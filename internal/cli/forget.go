package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/kernel-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget [subject]",
		Short: "Forget a learned subject",
		Args:  cobra.MinimumNArgs(1),
		Run:   runForget,
	}

	RootCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	subject := model.NormalizeSubject(strings.Join(args, " "))

	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	if !e.ForgetSubject(cmd.Context(), subject) {
		exitErr("forget", fmt.Errorf("subject %q not learned", subject))
	}

	printOK(map[string]any{"forgotten": subject})
}
