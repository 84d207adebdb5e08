package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rcliao/kernel-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "say [text]",
		Short: "Append a message to the transcript",
		Long:  "Append a message to the transcript without generating a reply. Text can be a positional arg or piped via stdin.",
		Run:   runSay,
	}

	cmd.Flags().StringP("role", "r", string(model.RoleUser), "Role: user or kernel")

	RootCmd.AddCommand(cmd)
}

func runSay(cmd *cobra.Command, args []string) {
	roleStr, _ := cmd.Flags().GetString("role")
	role, err := model.ParseRole(roleStr)
	if err != nil {
		exitErr("say", err)
	}

	text := argsOrStdin(args)
	if text == "" {
		exitErr("say", errors.New("text is required (positional arg or stdin)"))
	}

	e, s, _ := openEngine(cmd.Context())
	defer s.Close()

	entry, err := e.AppendMessage(cmd.Context(), model.ChatEntry{Role: role, Text: text})
	if err != nil {
		exitErr("say", err)
	}

	printOut(entry, nil)
}
