package kv

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// runConformance exercises the Store contract against one backend.
func runConformance(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if ok {
			t.Error("expected missing key to be absent")
		}
	})

	t.Run("SetGet", func(t *testing.T) {
		if err := s.Set(ctx, "a", "alpha"); err != nil {
			t.Fatalf("set: %v", err)
		}
		v, ok, err := s.Get(ctx, "a")
		if err != nil || !ok {
			t.Fatalf("get: ok=%v err=%v", ok, err)
		}
		if v != "alpha" {
			t.Errorf("expected 'alpha', got %q", v)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s.Set(ctx, "a", "one")
		s.Set(ctx, "a", "two")
		v, _, _ := s.Get(ctx, "a")
		if v != "two" {
			t.Errorf("expected 'two', got %q", v)
		}
	})

	t.Run("RemoveIdempotent", func(t *testing.T) {
		s.Set(ctx, "gone", "x")
		if err := s.Remove(ctx, "gone"); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if err := s.Remove(ctx, "gone"); err != nil {
			t.Fatalf("second remove: %v", err)
		}
		if _, ok, _ := s.Get(ctx, "gone"); ok {
			t.Error("expected key to be removed")
		}
	})

	t.Run("Keys", func(t *testing.T) {
		s.Set(ctx, "ns1/transcript", "[]")
		s.Set(ctx, "ns1/archive", "[]")
		s.Set(ctx, "ns2/transcript", "[]")
		keys, err := s.Keys(ctx, "ns1/")
		if err != nil {
			t.Fatalf("keys: %v", err)
		}
		if len(keys) != 2 || keys[0] != "ns1/archive" || keys[1] != "ns1/transcript" {
			t.Errorf("unexpected keys: %v", keys)
		}
	})

	t.Run("EmptyValue", func(t *testing.T) {
		s.Set(ctx, "empty", "")
		v, ok, err := s.Get(ctx, "empty")
		if err != nil || !ok || v != "" {
			t.Errorf("expected present empty value, got %q ok=%v err=%v", v, ok, err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runConformance(t, s)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "sub", "kv.json"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer s.Close()
	runConformance(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer s.Close()
	runConformance(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("KERNEL_MEMORY_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("KERNEL_MEMORY_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer s.Close()
	for _, k := range []string{"a", "gone", "empty", "ns1/transcript", "ns1/archive", "ns2/transcript"} {
		s.Remove(ctx, k)
	}
	runConformance(t, s)
}

func TestTimeoutStore(t *testing.T) {
	s := WithTimeout(NewMemoryStore(), time.Second)
	defer s.Close()
	runConformance(t, s)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	s1.Set(ctx, "transcript", `{"__v":1}`)
	s1.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	v, ok, _ := s2.Get(ctx, "transcript")
	if !ok || v != `{"__v":1}` {
		t.Errorf("expected value to survive reopen, got %q ok=%v", v, ok)
	}
}

func TestFileStore_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, _ := NewFileStore(path)
	ctx := context.Background()

	_, _, err := s.Get(ctx, "transcript")
	if !IsMalformed(err) {
		t.Fatalf("expected malformed error, got %v", err)
	}

	// Writing replaces the corrupted file.
	if err := s.Set(ctx, "transcript", "ok"); err != nil {
		t.Fatalf("set after corruption: %v", err)
	}
	v, ok, err := s.Get(ctx, "transcript")
	if err != nil || !ok || v != "ok" {
		t.Errorf("expected recovered value, got %q ok=%v err=%v", v, ok, err)
	}
}

// stallStore blocks every call until released.
type stallStore struct {
	Store
	release chan struct{}
}

func (s *stallStore) Get(ctx context.Context, key string) (string, bool, error) {
	<-s.release
	return "", false, nil
}

func TestWithTimeout_StalledBackend(t *testing.T) {
	stall := &stallStore{Store: NewMemoryStore(), release: make(chan struct{})}
	defer close(stall.release)
	s := WithTimeout(stall, 20*time.Millisecond)

	start := time.Now()
	_, _, err := s.Get(context.Background(), "transcript")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsUnavailable(err) {
		t.Errorf("expected unavailable error, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout wrapper did not release the caller")
	}
}

// slowSetStore ignores ctx and sleeps through its first Set.
type slowSetStore struct {
	Store
	mu    sync.Mutex
	calls int
	delay time.Duration
}

func (s *slowSetStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		time.Sleep(s.delay)
	}
	return s.Store.Set(context.Background(), key, value)
}

// Close leaves the inner store readable for assertions.
func (s *slowSetStore) Close() error { return nil }

func TestWithTimeout_LateWriteDoesNotOverwriteNewer(t *testing.T) {
	ctx := context.Background()
	slow := &slowSetStore{Store: NewMemoryStore(), delay: 150 * time.Millisecond}
	s := WithTimeout(slow, 50*time.Millisecond)

	if err := s.Set(ctx, "transcript", "first"); !IsUnavailable(err) {
		t.Fatalf("expected first set to time out, got %v", err)
	}
	// The first write is still running, so this one must not race it.
	if err := s.Set(ctx, "transcript", "second"); !IsUnavailable(err) {
		t.Fatalf("expected second set to fail while the first is in flight, got %v", err)
	}
	// Close waits for the abandoned write.
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	v, ok, _ := slow.Store.Get(ctx, "transcript")
	if !ok || v != "first" {
		t.Errorf("expected the late write to have landed as %q, got %q", "first", v)
	}
}

func TestWithTimeout_NextCallWaitsForEarlierOne(t *testing.T) {
	ctx := context.Background()
	slow := &slowSetStore{Store: NewMemoryStore(), delay: 150 * time.Millisecond}
	s := WithTimeout(slow, 100*time.Millisecond)
	defer s.Close()

	if err := s.Set(ctx, "k", "old"); !IsUnavailable(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	// Gets a fresh 100ms budget; the earlier write returns ~50ms into it.
	if err := s.Set(ctx, "k", "new"); err != nil {
		t.Fatalf("expected set to succeed after waiting, got %v", err)
	}
	v, _, err := s.Get(ctx, "k")
	if err != nil || v != "new" {
		t.Errorf("expected %q, got %q (%v)", "new", v, err)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	s.Close()
	if err := s.Set(context.Background(), "a", "b"); !IsUnavailable(err) {
		t.Errorf("expected unavailable after close, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"sqlite", Options{Backend: BackendSQLite, Path: filepath.Join(dir, "m.db")}, false},
		{"default is sqlite", Options{Path: filepath.Join(dir, "d.db")}, false},
		{"file", Options{Backend: BackendFile, Path: filepath.Join(dir, "m.json")}, false},
		{"memory", Options{Backend: BackendMemory}, false},
		{"postgres without dsn", Options{Backend: BackendPostgres}, true},
		{"unknown", Options{Backend: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer s.Close()
			if err := s.Set(ctx, "k", "v"); err != nil {
				t.Errorf("set: %v", err)
			}
		})
	}
}
