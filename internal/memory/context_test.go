package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/rcliao/kernel-memory/internal/model"
)

func TestContextBasic(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	e.LearnSubject(ctx, "go", "Go is a statically typed language")
	e.LearnSubject(ctx, "rust", "Rust is a systems language with a borrow checker")
	e.AppendMessage(ctx, model.User("tell me about languages"))
	e.AppendMessage(ctx, model.Kernel("which one?"))

	result := e.Context(ctx, ContextParams{Query: "typed language", Budget: 4000})

	if len(result.Facts) == 0 {
		t.Fatal("expected at least one fact in context")
	}
	if result.Budget != 4000 {
		t.Errorf("expected budget 4000, got %d", result.Budget)
	}
	if len(result.History) != 2 || result.History[0].Text != "tell me about languages" {
		t.Errorf("expected full history oldest first, got %+v", result.History)
	}
}

func TestContextBudgetLimit(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	long := strings.Repeat("This is a line about programming languages and their features. ", 100)
	e.LearnSubject(ctx, "big", long)
	for i := 0; i < 10; i++ {
		e.AppendMessage(ctx, model.User(strings.Repeat("x", 100)))
	}

	// ~200 chars
	result := e.Context(ctx, ContextParams{Query: "programming", Budget: 50})

	if len(result.Facts) != 1 || !result.Facts[0].Excerpt {
		t.Fatalf("expected one excerpted fact, got %+v", result.Facts)
	}
	if result.Used > 50+1 {
		t.Errorf("used %d tokens, over budget", result.Used)
	}
}

func TestContextHistoryKeepsNewest(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()
	for _, text := range []string{"aaaa", "bbbb", "cccc"} {
		e.AppendMessage(ctx, model.User(text))
	}

	// budget of 2 tokens = 8 chars fits the two newest entries
	result := e.Context(ctx, ContextParams{Budget: 2})
	if len(result.History) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.History))
	}
	if result.History[0].Text != "bbbb" || result.History[1].Text != "cccc" {
		t.Errorf("expected newest entries oldest first, got %+v", result.History)
	}
}

func TestContextEmpty(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	result := e.Context(context.Background(), ContextParams{Query: "nothing here"})
	if len(result.Facts) != 0 || len(result.History) != 0 {
		t.Errorf("expected empty context, got %+v", result)
	}
}

func TestContextExcerptPicksMatchingPassage(t *testing.T) {
	e, _ := newTestEngine(t, Options{})
	ctx := context.Background()

	fact := strings.Repeat("a", 150) + "\n\n" + strings.Repeat("z", 150)
	e.LearnSubject(ctx, "letters", fact)

	result := e.Context(ctx, ContextParams{Query: "zzz", Budget: 50})
	if len(result.Facts) != 1 || !result.Facts[0].Excerpt {
		t.Fatalf("expected one excerpted fact, got %+v", result.Facts)
	}
	if want := strings.Repeat("z", 150) + "..."; result.Facts[0].Fact != want {
		t.Errorf("expected the matching passage, got %q", result.Facts[0].Fact)
	}
}
