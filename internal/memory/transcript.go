package memory

import (
	"context"
	"fmt"

	"github.com/rcliao/kernel-memory/internal/model"
)

// AppendMessage adds entry to the end of the transcript and returns it with
// its id and timestamp filled in. Entries beyond the transcript bound are
// evicted oldest first, into the archive unless DiscardEvicted is set.
//
// The only error returned is ErrInvalidRole. Storage failures leave the
// transcript unchanged and are logged.
func (e *Engine) AppendMessage(ctx context.Context, entry model.ChatEntry) (model.ChatEntry, error) {
	if !entry.Role.Valid() {
		return entry, fmt.Errorf("%w: %q", ErrInvalidRole, entry.Role)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = e.now().UTC()
	}
	if entry.ID == "" {
		entry.ID = e.newID(entry.CreatedAt)
	}
	if err := e.appendEntries(ctx, []model.ChatEntry{entry}); err != nil {
		e.warn("append", err)
	}
	return entry, nil
}

// appendEntries appends in order, then evicts past the bound. The archive
// is written before the transcript so an interrupted append never loses
// evicted entries.
func (e *Engine) appendEntries(ctx context.Context, add []model.ChatEntry) error {
	tKey := e.key(KeyTranscript)
	unlock := e.locks.lock(tKey)
	defer unlock()

	entries, err := e.loadOrReset(ctx, tKey)
	if err != nil {
		return err
	}
	entries = append(entries, add...)

	if over := len(entries) - e.limit; over > 0 {
		evicted := entries[:over]
		kept := make([]model.ChatEntry, e.limit)
		copy(kept, entries[over:])
		entries = kept

		if e.archive {
			if err := e.archiveEntries(ctx, evicted); err != nil {
				return err
			}
		}
		e.log.Debug("evicted transcript entries", "count", over, "archived", e.archive)
	}

	return e.saveEntries(ctx, tKey, entries)
}

// archiveEntries appends to the archive. Caller holds the transcript lock,
// which also guards the archive.
func (e *Engine) archiveEntries(ctx context.Context, add []model.ChatEntry) error {
	aKey := e.key(KeyArchive)
	archived, err := e.loadOrReset(ctx, aKey)
	if err != nil {
		return err
	}
	return e.saveEntries(ctx, aKey, append(archived, add...))
}

// LoadTranscript returns the transcript oldest first. It is empty if the
// transcript was never written, was cleared, or cannot be read.
func (e *Engine) LoadTranscript(ctx context.Context) []model.ChatEntry {
	entries, err := e.loadEntries(ctx, e.key(KeyTranscript))
	if err != nil {
		e.warn("load transcript", err)
		return []model.ChatEntry{}
	}
	if entries == nil {
		return []model.ChatEntry{}
	}
	return entries
}

// LoadArchive returns entries evicted from the transcript, oldest first.
func (e *Engine) LoadArchive(ctx context.Context) []model.ChatEntry {
	entries, err := e.loadEntries(ctx, e.key(KeyArchive))
	if err != nil {
		e.warn("load archive", err)
		return []model.ChatEntry{}
	}
	if entries == nil {
		return []model.ChatEntry{}
	}
	return entries
}

// RecentMessages returns at most n of the newest transcript entries, oldest
// first.
func (e *Engine) RecentMessages(ctx context.Context, n int) []model.ChatEntry {
	entries := e.LoadTranscript(ctx)
	if n > 0 && n < len(entries) {
		entries = entries[len(entries)-n:]
	}
	return entries
}

// ClearTranscript removes the transcript. The archive is kept.
func (e *Engine) ClearTranscript(ctx context.Context) {
	e.removeUnderLock(ctx, KeyTranscript, "clear transcript")
}

// ClearArchive removes the archive.
func (e *Engine) ClearArchive(ctx context.Context) {
	e.removeUnderLock(ctx, KeyArchive, "clear archive")
}

// ClearAll removes the transcript, archive and learned subjects.
func (e *Engine) ClearAll(ctx context.Context) {
	e.ClearTranscript(ctx)
	e.ClearArchive(ctx)
	e.ClearSubjects(ctx)
}

func (e *Engine) removeUnderLock(ctx context.Context, name, op string) {
	lockKey := e.key(KeyTranscript)
	if name == KeySubjects {
		lockKey = e.key(KeySubjects)
	}
	unlock := e.locks.lock(lockKey)
	defer unlock()
	if err := e.store.Remove(ctx, e.key(name)); err != nil {
		e.warn(op, err)
	}
}
