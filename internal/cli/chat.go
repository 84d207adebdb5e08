package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/kernel-memory/internal/chat"
	"github.com/rcliao/kernel-memory/internal/config"
	"github.com/rcliao/kernel-memory/internal/llm"
	"github.com/rcliao/kernel-memory/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to Kernel",
		Long: `Send a message and print Kernel's reply. Both are recorded in the transcript.
Without a message, read one message per line from stdin until EOF.`,
		Run: runChat,
	}

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	e, s, cfg := openEngine(ctx)
	defer s.Close()

	session, err := newChatSession(e, cfg.LLM, slog.Default())
	if err != nil {
		exitErr("llm", err)
	}

	if len(args) > 0 {
		reply(ctx, session, strings.Join(args, " "))
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply(ctx, session, line)
	}
	if err := scanner.Err(); err != nil {
		exitErr("read stdin", err)
	}
}

// newChatSession wires the configured responder and logger into a session.
func newChatSession(e *memory.Engine, cfg config.LLMConfig, logger *slog.Logger) (*chat.Session, error) {
	responder, err := llm.New(llm.Options{
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		SystemPrompt: cfg.SystemPrompt,
		MaxRetries:   cfg.MaxRetries,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	return chat.NewSession(e, chat.Options{
		Responder:      responder,
		Timeout:        cfg.Timeout,
		MatchThreshold: cfg.MatchThreshold,
		Logger:         logger,
	}), nil
}

func reply(ctx context.Context, session *chat.Session, input string) {
	r, err := session.Reply(ctx, input)
	if err != nil {
		exitErr("chat", err)
	}
	printOut(r, func(w io.Writer) {
		fmt.Fprintf(w, "kernel: %s\n", r.Text)
	})
}
