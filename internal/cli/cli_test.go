package cli

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/kernel-memory/internal/chat"
	"github.com/rcliao/kernel-memory/internal/config"
	"github.com/rcliao/kernel-memory/internal/kv"
	"github.com/rcliao/kernel-memory/internal/memory"
)

func TestParseSnapshot_JSON(t *testing.T) {
	data := `{"__v":1,"ns":"alice","transcript":[{"id":"1","role":"user","text":"hi","created_at":"2026-01-02T03:04:05Z"}],"subjects":[{"subject":"go","fact":"typed"}]}`
	snap, err := parseSnapshot([]byte(data))
	if err != nil {
		t.Fatalf("parseSnapshot: %v", err)
	}
	if snap.Namespace != "alice" || len(snap.Transcript) != 1 || len(snap.Subjects) != 1 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.Transcript[0].Text != "hi" {
		t.Errorf("expected text 'hi', got %q", snap.Transcript[0].Text)
	}
}

func TestParseSnapshot_YAML(t *testing.T) {
	data := `
version: 1
ns: bob
transcript:
  - id: "1"
    role: kernel
    text: hello
subjects:
  - subject: rust
    fact: borrow checker
`
	snap, err := parseSnapshot([]byte(data))
	if err != nil {
		t.Fatalf("parseSnapshot: %v", err)
	}
	if snap.Namespace != "bob" || len(snap.Transcript) != 1 || snap.Subjects[0].Fact != "borrow checker" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestParseSnapshot_Invalid(t *testing.T) {
	if _, err := parseSnapshot([]byte("[1, 2")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestNewLogger_Level(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
	}
	for _, tt := range tests {
		l := newLogger(config.LogConfig{Level: tt.level, Format: "json"})
		if !l.Enabled(context.Background(), tt.want) {
			t.Errorf("level %q: expected %v enabled", tt.level, tt.want)
		}
		if tt.want > slog.LevelDebug && l.Enabled(context.Background(), tt.want-1) {
			t.Errorf("level %q: expected below %v disabled", tt.level, tt.want)
		}
	}
}

func TestChatSession_LogsResponderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	e := memory.New(kv.NewMemoryStore(), memory.Options{})

	session, err := newChatSession(e, config.LLMConfig{
		Provider:       "openai",
		BaseURL:        srv.URL,
		APIKey:         "test",
		Timeout:        5 * time.Second,
		MatchThreshold: -1,
	}, logger)
	if err != nil {
		t.Fatalf("newChatSession: %v", err)
	}

	r, err := session.Reply(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if r.Source != chat.SourceFallback {
		t.Errorf("expected fallback reply, got %q", r.Source)
	}
	if !strings.Contains(buf.String(), "responder failed") {
		t.Errorf("expected responder failure in log, got %q", buf.String())
	}
}
