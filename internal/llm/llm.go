// Package llm defines the remote language model collaborator used by the
// chat orchestrator.
package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/rcliao/kernel-memory/internal/model"
)

// Responder produces a reply to prompt given the prior conversation.
type Responder interface {
	Respond(ctx context.Context, prompt string, history []model.ChatEntry) (string, error)
}

// DefaultSystemPrompt sets the assistant persona.
const DefaultSystemPrompt = "You are Kernel, a curious and friendly assistant. Answer briefly."

// --- OpenAI-compatible Provider ---

// Config holds the OpenAI-compatible provider configuration.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	MaxRetries   int
	Logger       *slog.Logger
}

// OpenAIResponder calls an OpenAI-compatible chat completion API.
type OpenAIResponder struct {
	client *openai.Client
	config Config
}

// NewOpenAIResponder creates a responder. Unset fields get defaults.
func NewOpenAIResponder(cfg Config) *OpenAIResponder {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIResponder{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

// Messages converts a transcript into chat completion messages: system
// prompt, history, then the new prompt.
func Messages(system, prompt string, history []model.ChatEntry) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, h := range history {
		role := openai.ChatMessageRoleUser
		if h.Role == model.RoleKernel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: h.Text})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
}

func (r *OpenAIResponder) Respond(ctx context.Context, prompt string, history []model.ChatEntry) (string, error) {
	var result string
	err := r.doWithRetry(ctx, func() error {
		resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    r.config.Model,
			Messages: Messages(r.config.SystemPrompt, prompt, history),
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}
	return result, nil
}

// doWithRetry executes fn with exponential backoff.
func (r *OpenAIResponder) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.config.MaxRetries; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt < r.config.MaxRetries-1 {
			wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			r.config.Logger.Debug("chat request failed, retrying", "attempt", attempt+1, "wait_time", wait, "error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// --- Placeholder ---

// Placeholder is an offline responder that picks a canned line
// deterministically from the prompt. The same prompt always yields the same
// reply.
type Placeholder struct {
	Lines []string
}

var defaultLines = []string{
	"Interesting. Tell me more about that.",
	"I'm still learning. Could you teach me about it?",
	"That reminds me of something, but my memory is fuzzy.",
	"Hmm, I don't know yet. Try teaching me with learn.",
	"I'm running offline right now, so I can only recall what you've taught me.",
	"Hello world! That's the one thing I know how to say for sure.",
}

func (p Placeholder) Respond(_ context.Context, prompt string, _ []model.ChatEntry) (string, error) {
	lines := p.Lines
	if len(lines) == 0 {
		lines = defaultLines
	}
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	return lines[h.Sum32()%uint32(len(lines))], nil
}

// --- Factory ---

// Options selects a responder.
type Options struct {
	Provider     string // "offline" (default) | "openai"
	Model        string
	BaseURL      string
	APIKey       string
	SystemPrompt string
	MaxRetries   int
	Logger       *slog.Logger
}

// New builds a responder from options. OPENAI_API_KEY is used when the
// openai provider has no key configured.
func New(opts Options) (Responder, error) {
	switch opts.Provider {
	case "", "offline":
		return Placeholder{}, nil
	case "openai":
		key := opts.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIResponder(Config{
			BaseURL:      opts.BaseURL,
			APIKey:       key,
			Model:        opts.Model,
			SystemPrompt: opts.SystemPrompt,
			MaxRetries:   opts.MaxRetries,
			Logger:       opts.Logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (valid: offline, openai)", opts.Provider)
	}
}
