// Package memory implements the chat memory engine: a bounded transcript
// with an archive of evicted entries, a learned-subject store, and search
// over both, persisted as JSON blobs in a kv.Store.
//
// Public methods never return storage errors. A failed read yields an empty
// result and a failed write leaves the previous state in place; both are
// logged at Warn. The unexported load/save helpers return errors so the
// failure paths stay testable.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/kernel-memory/internal/embedding"
	"github.com/rcliao/kernel-memory/internal/kv"
	"github.com/rcliao/kernel-memory/internal/model"
)

// Logical blob keys.
const (
	KeyTranscript = "transcript"
	KeyArchive    = "archive"
	KeySubjects   = "learnedSubjects"
)

// DefaultTranscriptLimit is the transcript bound when none is configured.
const DefaultTranscriptLimit = 500

var (
	// ErrInvalidRole is returned when an entry's role is not user or kernel.
	ErrInvalidRole = errors.New("invalid chat entry role")
	// ErrEmptySubject is returned when a subject normalizes to "".
	ErrEmptySubject = errors.New("subject is empty")
)

// Options configures an Engine.
type Options struct {
	// TranscriptLimit bounds the transcript. Zero means DefaultTranscriptLimit.
	TranscriptLimit int
	// DiscardEvicted drops entries evicted from the transcript instead of
	// moving them to the archive.
	DiscardEvicted bool
	// Namespace prefixes every blob key as "<ns>/<key>".
	Namespace string
	// Embedder vectorizes facts for similarity search. Defaults to letter
	// frequency.
	Embedder embedding.Embedder
	Logger   *slog.Logger
	// Now is the clock used for timestamps.
	Now func() time.Time
}

// Engine owns the transcript, archive and learned subjects of one session.
type Engine struct {
	store    kv.Store
	limit    int
	archive  bool
	ns       string
	embedder embedding.Embedder
	log      *slog.Logger
	now      func() time.Time
	entropy  io.Reader
	locks    keyLocks
}

// New creates an Engine over store.
func New(store kv.Store, opts Options) *Engine {
	if opts.TranscriptLimit <= 0 {
		opts.TranscriptLimit = DefaultTranscriptLimit
	}
	if opts.Embedder == nil {
		opts.Embedder = embedding.LetterFrequency{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:    store,
		limit:    opts.TranscriptLimit,
		archive:  !opts.DiscardEvicted,
		ns:       opts.Namespace,
		embedder: opts.Embedder,
		log:      opts.Logger.With("ns", opts.Namespace),
		now:      opts.Now,
		entropy: &ulid.LockedMonotonicReader{
			MonotonicReader: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		},
		locks: keyLocks{m: make(map[string]*sync.Mutex)},
	}
}

// Namespace returns the engine's namespace.
func (e *Engine) Namespace() string { return e.ns }

// TranscriptLimit returns the configured transcript bound.
func (e *Engine) TranscriptLimit() int { return e.limit }

func (e *Engine) newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), e.entropy).String()
}

// key returns the store key for a logical blob.
func (e *Engine) key(name string) string {
	return BlobKey(e.ns, name)
}

// BlobKey returns the store key for a logical blob in namespace ns.
func BlobKey(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "/" + name
}

// keyLocks hands out one mutex per logical key so read-modify-write cycles
// on the same blob never interleave.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// loadBlob decodes the blob under key into v. ok is false when the key is
// absent.
func (e *Engine) loadBlob(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := e.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, kv.NewMalformed(key, err)
	}
	return true, nil
}

func (e *Engine) saveBlob(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return &kv.StorageError{Op: "encode", Key: key, Kind: kv.Unavailable, Err: err}
	}
	return e.store.Set(ctx, key, string(b))
}

func (e *Engine) loadEntries(ctx context.Context, key string) ([]model.ChatEntry, error) {
	var l model.EntryLog
	if _, err := e.loadBlob(ctx, key, &l); err != nil {
		return nil, err
	}
	return l.Entries, nil
}

func (e *Engine) saveEntries(ctx context.Context, key string, entries []model.ChatEntry) error {
	if entries == nil {
		entries = []model.ChatEntry{}
	}
	return e.saveBlob(ctx, key, model.EntryLog{Version: model.BlobVersion, Entries: entries})
}

func (e *Engine) loadSubjects(ctx context.Context) ([]model.LearnedSubject, error) {
	var l model.SubjectLog
	if _, err := e.loadBlob(ctx, e.key(KeySubjects), &l); err != nil {
		return nil, err
	}
	return l.Subjects, nil
}

func (e *Engine) saveSubjects(ctx context.Context, subjects []model.LearnedSubject) error {
	if subjects == nil {
		subjects = []model.LearnedSubject{}
	}
	return e.saveBlob(ctx, e.key(KeySubjects), model.SubjectLog{Version: model.BlobVersion, Subjects: subjects})
}

// loadOrReset loads entries under key, treating a malformed blob as empty.
func (e *Engine) loadOrReset(ctx context.Context, key string) ([]model.ChatEntry, error) {
	entries, err := e.loadEntries(ctx, key)
	if kv.IsMalformed(err) {
		e.log.Warn("discarding corrupted blob", "key", key, "error", err)
		return nil, nil
	}
	return entries, err
}

func (e *Engine) warn(op string, err error) {
	e.log.Warn("memory operation failed", "op", op, "error", err)
}
