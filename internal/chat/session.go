// Package chat turns user input into Kernel replies, answering from learned
// subjects when it can and from a Responder otherwise.
package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/rcliao/kernel-memory/internal/llm"
	"github.com/rcliao/kernel-memory/internal/memory"
	"github.com/rcliao/kernel-memory/internal/model"
)

// Reply sources.
const (
	SourceMemory   = "memory"
	SourceLearn    = "learn"
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultHistory        = 20
	DefaultMatchThreshold = 0.9
)

// AnySimilarity as MatchThreshold recalls the best subject with any
// positive similarity.
const AnySimilarity = math.SmallestNonzeroFloat64

const learnPrefix = "learn subject:"

var (
	selfAnalysisRe = regexp.MustCompile(`(?i)\b(analy[sz]e yourself|self[- ]analysis|reflect on yourself)\b`)
	lastLearnedRe  = regexp.MustCompile(`(?i)\b(what|recall|remember)\b.*\b(learn(ed|t)?|facts?|info)\b`)
	rememberRe     = regexp.MustCompile(`(?i)\bremember\b`)
)

// Options configures a Session.
type Options struct {
	Responder llm.Responder
	// Fallback answers when Responder fails. Defaults to llm.Placeholder.
	Fallback llm.Responder
	Timeout  time.Duration
	// History is the number of recent transcript entries sent as context.
	History int
	// MatchThreshold is the similarity a subject must exceed to be recalled
	// when the input does not name it literally. Zero selects
	// DefaultMatchThreshold, AnySimilarity accepts any positive score and a
	// negative value disables similarity recall.
	MatchThreshold float64
	Logger         *slog.Logger
}

// Session is one chat conversation backed by a memory Engine.
type Session struct {
	engine    *memory.Engine
	responder llm.Responder
	fallback  llm.Responder
	timeout   time.Duration
	history   int
	threshold float64
	log       *slog.Logger
}

// Reply is Kernel's answer to one input.
type Reply struct {
	Text    string `json:"text" yaml:"text"`
	Source  string `json:"source" yaml:"source"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// NewSession creates a Session.
func NewSession(engine *memory.Engine, opts Options) *Session {
	if opts.Responder == nil {
		opts.Responder = llm.Placeholder{}
	}
	if opts.Fallback == nil {
		opts.Fallback = llm.Placeholder{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.History <= 0 {
		opts.History = DefaultHistory
	}
	if opts.MatchThreshold == 0 {
		opts.MatchThreshold = DefaultMatchThreshold
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		engine:    engine,
		responder: opts.Responder,
		fallback:  opts.Fallback,
		timeout:   opts.Timeout,
		history:   opts.History,
		threshold: opts.MatchThreshold,
		log:       opts.Logger,
	}
}

// Reply records input in the transcript, produces an answer and records the
// answer too. The only error is for blank input.
func (s *Session) Reply(ctx context.Context, input string) (*Reply, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty input")
	}

	// History excludes the entry about to be appended.
	history := s.engine.RecentMessages(ctx, s.history)
	if _, err := s.engine.AppendMessage(ctx, model.User(input)); err != nil {
		return nil, fmt.Errorf("append user entry: %w", err)
	}

	r := s.answer(ctx, input, history)
	if _, err := s.engine.AppendMessage(ctx, model.Kernel(r.Text)); err != nil {
		return nil, fmt.Errorf("append kernel entry: %w", err)
	}
	return r, nil
}

func (s *Session) answer(ctx context.Context, input string, history []model.ChatEntry) *Reply {
	if r, ok := s.learnCommand(ctx, input); ok {
		return r
	}
	if selfAnalysisRe.MatchString(input) {
		return s.selfAnalysis(ctx)
	}
	subjects := s.engine.ListSubjects(ctx)
	if r, ok := recallNamed(subjects, input); ok {
		return r
	}
	if len(subjects) > 0 && lastLearnedRe.MatchString(input) {
		last := subjects[len(subjects)-1]
		return &Reply{
			Text:    fmt.Sprintf("Last subject I learned: %s\n%s", last.Subject, last.Fact),
			Source:  SourceMemory,
			Subject: last.Subject,
		}
	}
	if rememberRe.MatchString(input) {
		if r, ok := lastUserMessage(history); ok {
			return r
		}
	}
	if r, ok := s.recallSimilar(ctx, input); ok {
		return r
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.responder.Respond(rctx, input, history)
	if err == nil && text != "" {
		return &Reply{Text: text, Source: SourceLLM}
	}
	if err != nil {
		s.log.Warn("responder failed, using fallback", "error", err)
	}
	text, _ = s.fallback.Respond(ctx, input, history)
	return &Reply{Text: text, Source: SourceFallback}
}

// selfAnalysis summarizes what the session holds. Each exchange is a user
// entry plus a kernel entry; the input being answered is not counted.
func (s *Session) selfAnalysis(ctx context.Context) *Reply {
	st := s.engine.Stats(ctx)
	conversations := (st.TranscriptEntries + st.ArchiveEntries) / 2
	var b strings.Builder
	fmt.Fprintf(&b, "I've had %d conversations and learned about %d subjects.", conversations, st.Subjects)
	if conversations > 0 {
		b.WriteString(" My history shapes my responses.")
	}
	if st.Subjects > 0 {
		b.WriteString(" I can share what I've learned, even offline.")
	}
	b.WriteString(" My purpose is to be a curious, kind, and empathetic companion.")
	return &Reply{Text: b.String(), Source: SourceMemory}
}

func lastUserMessage(history []model.ChatEntry) (*Reply, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			return &Reply{Text: fmt.Sprintf("I recall you said: %q", history[i].Text), Source: SourceMemory}, true
		}
	}
	return nil, false
}

// learnCommand handles "learn subject: <subject>: <fact>".
func (s *Session) learnCommand(ctx context.Context, input string) (*Reply, bool) {
	if !strings.HasPrefix(strings.ToLower(input), learnPrefix) {
		return nil, false
	}
	rest := strings.TrimSpace(input[len(learnPrefix):])
	subject, fact, found := strings.Cut(rest, ":")
	subject = strings.TrimSpace(subject)
	fact = strings.TrimSpace(fact)
	if !found || fact == "" {
		return &Reply{
			Text:   fmt.Sprintf("I don't have anything on %q yet. Teach me with \"learn subject: %s: <fact>\".", subject, subject),
			Source: SourceLearn,
		}, true
	}
	if err := s.engine.LearnSubject(ctx, subject, fact); err != nil {
		return &Reply{Text: "I need a subject name to learn that.", Source: SourceLearn}, true
	}
	return &Reply{
		Text:    fmt.Sprintf("Learned core facts about %q for offline use.", subject),
		Source:  SourceLearn,
		Subject: model.NormalizeSubject(subject),
	}, true
}

// recallNamed answers from the first learned subject the input names.
func recallNamed(subjects []model.LearnedSubject, input string) (*Reply, bool) {
	lower := strings.ToLower(input)
	for _, sub := range subjects {
		if strings.Contains(lower, sub.Subject) {
			return fromMemory(sub.Subject, sub.Fact), true
		}
	}
	return nil, false
}

// recallSimilar answers from the most similar subject above the match
// threshold.
func (s *Session) recallSimilar(ctx context.Context, input string) (*Reply, bool) {
	if s.threshold < 0 {
		return nil, false
	}
	top := s.engine.SimilaritySearch(ctx, input, 1, s.threshold)
	if len(top) == 0 {
		return nil, false
	}
	s.log.Debug("recalled by similarity", "subject", top[0].Subject, "score", top[0].Score)
	return fromMemory(top[0].Subject, top[0].Fact), true
}

func fromMemory(subject, fact string) *Reply {
	return &Reply{
		Text:    fmt.Sprintf("Here's what I know about %s: %s", subject, fact),
		Source:  SourceMemory,
		Subject: subject,
	}
}
