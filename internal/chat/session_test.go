package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/kernel-memory/internal/kv"
	"github.com/rcliao/kernel-memory/internal/memory"
	"github.com/rcliao/kernel-memory/internal/model"
)

type stubResponder struct {
	reply   string
	err     error
	history []model.ChatEntry
	calls   int
}

func (s *stubResponder) Respond(ctx context.Context, prompt string, history []model.ChatEntry) (string, error) {
	s.calls++
	s.history = history
	return s.reply, s.err
}

type slowResponder struct{}

func (slowResponder) Respond(ctx context.Context, _ string, _ []model.ChatEntry) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newTestEngine(t *testing.T) *memory.Engine {
	t.Helper()
	return memory.New(kv.NewMemoryStore(), memory.Options{})
}

func TestReplyFromResponder(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	stub := &stubResponder{reply: "hi there"}
	s := NewSession(e, Options{Responder: stub, MatchThreshold: -1})

	r, err := s.Reply(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, r.Source)
	assert.Equal(t, "hi there", r.Text)
	assert.Empty(t, stub.history)

	transcript := e.LoadTranscript(ctx)
	require.Len(t, transcript, 2)
	assert.Equal(t, model.RoleUser, transcript[0].Role)
	assert.Equal(t, "hello", transcript[0].Text)
	assert.Equal(t, model.RoleKernel, transcript[1].Role)
	assert.Equal(t, "hi there", transcript[1].Text)

	_, err = s.Reply(ctx, "again")
	require.NoError(t, err)
	require.Len(t, stub.history, 2)
	assert.Equal(t, "hello", stub.history[0].Text)
}

func TestReplyFallsBackOnError(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	fallback := &stubResponder{reply: "still here"}
	s := NewSession(e, Options{
		Responder:      &stubResponder{err: errors.New("offline")},
		Fallback:       fallback,
		MatchThreshold: -1,
	})

	r, err := s.Reply(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, r.Source)
	assert.Equal(t, "still here", r.Text)
	assert.Equal(t, 1, fallback.calls)
}

func TestReplyTimesOut(t *testing.T) {
	e := newTestEngine(t)
	s := NewSession(e, Options{Responder: slowResponder{}, Timeout: 10 * time.Millisecond, MatchThreshold: -1})

	r, err := s.Reply(context.Background(), "anyone?")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, r.Source)
	assert.NotEmpty(t, r.Text)
}

func TestReplyFromMemory(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.NoError(t, e.LearnSubject(ctx, "Go", "a compiled language"))
	stub := &stubResponder{reply: "unused"}
	s := NewSession(e, Options{Responder: stub})

	r, err := s.Reply(ctx, "Tell me about GO please")
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, r.Source)
	assert.Equal(t, "go", r.Subject)
	assert.Contains(t, r.Text, "a compiled language")
	assert.Zero(t, stub.calls)
}

func TestReplyFromSimilarity(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.NoError(t, e.LearnSubject(ctx, "cats", "listen silent"))
	s := NewSession(e, Options{Responder: &stubResponder{reply: "unused"}, MatchThreshold: 0.99})

	// An anagram of the fact scores 1.0 under letter frequency.
	r, err := s.Reply(ctx, "enlist tinsel")
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, r.Source)
	assert.Equal(t, "cats", r.Subject)
}

func TestLearnCommand(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	s := NewSession(e, Options{})

	r, err := s.Reply(ctx, "Learn subject: Rust: memory safe systems language")
	require.NoError(t, err)
	assert.Equal(t, SourceLearn, r.Source)
	assert.Equal(t, "rust", r.Subject)

	fact, ok := e.GetFacts(ctx, "rust")
	require.True(t, ok)
	assert.Equal(t, "memory safe systems language", fact)

	r, err = s.Reply(ctx, "learn subject: zig")
	require.NoError(t, err)
	assert.Equal(t, SourceLearn, r.Source)
	_, ok = e.GetFacts(ctx, "zig")
	assert.False(t, ok)
}

func TestReplyEmptyInput(t *testing.T) {
	s := NewSession(newTestEngine(t), Options{})
	_, err := s.Reply(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSelfAnalysis(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	stub := &stubResponder{reply: "ok"}
	s := NewSession(e, Options{Responder: stub, MatchThreshold: -1})

	r, err := s.Reply(ctx, "Please analyze yourself")
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, r.Source)
	assert.True(t, strings.HasPrefix(r.Text, "I've had 0 conversations and learned about 0 subjects."))

	_, err = s.Reply(ctx, "hello")
	require.NoError(t, err)
	require.NoError(t, e.LearnSubject(ctx, "go", "typed"))

	r, err = s.Reply(ctx, "self-analysis")
	require.NoError(t, err)
	assert.Contains(t, r.Text, "I've had 2 conversations and learned about 1 subjects.")
	assert.Contains(t, r.Text, "My history shapes my responses.")
	assert.Contains(t, r.Text, "even offline")
	assert.Equal(t, 1, stub.calls)
}

func TestLastLearnedSubject(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.NoError(t, e.LearnSubject(ctx, "go", "typed"))
	require.NoError(t, e.LearnSubject(ctx, "rust", "borrow checker"))
	stub := &stubResponder{reply: "unused"}
	s := NewSession(e, Options{Responder: stub, MatchThreshold: -1})

	r, err := s.Reply(ctx, "What have you learned lately?")
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, r.Source)
	assert.Equal(t, "rust", r.Subject)
	assert.Equal(t, "Last subject I learned: rust\nborrow checker", r.Text)
	assert.Zero(t, stub.calls)
}

func TestRememberLastUserMessage(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	stub := &stubResponder{reply: "nice"}
	s := NewSession(e, Options{Responder: stub, MatchThreshold: -1})

	// Nothing said yet, so the responder answers.
	r, err := s.Reply(ctx, "do you remember?")
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, r.Source)

	_, err = s.Reply(ctx, "my cat is called Miso")
	require.NoError(t, err)

	r, err = s.Reply(ctx, "Remember me?")
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, r.Source)
	assert.Equal(t, `I recall you said: "my cat is called Miso"`, r.Text)
}

func TestAnySimilarityThreshold(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.NoError(t, e.LearnSubject(ctx, "cats", "purring animals"))

	strict := NewSession(e, Options{Responder: &stubResponder{reply: "llm"}})
	r, err := strict.Reply(ctx, "zzz purr")
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, r.Source)

	loose := NewSession(e, Options{Responder: &stubResponder{reply: "llm"}, MatchThreshold: AnySimilarity})
	r, err = loose.Reply(ctx, "zzz purr")
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, r.Source)
	assert.Equal(t, "cats", r.Subject)
}
