package memory

import (
	"context"
	"time"

	"github.com/rcliao/kernel-memory/internal/model"
)

// Snapshot is a full export of one session.
type Snapshot struct {
	Version    int                    `json:"__v" yaml:"version"`
	Namespace  string                 `json:"ns" yaml:"ns"`
	ExportedAt time.Time              `json:"exported_at" yaml:"exported_at"`
	Transcript []model.ChatEntry      `json:"transcript" yaml:"transcript"`
	Archive    []model.ChatEntry      `json:"archive" yaml:"archive"`
	Subjects   []model.LearnedSubject `json:"subjects" yaml:"subjects"`
}

// Export returns everything the session holds.
func (e *Engine) Export(ctx context.Context) *Snapshot {
	return &Snapshot{
		Version:    model.BlobVersion,
		Namespace:  e.ns,
		ExportedAt: e.now().UTC(),
		Transcript: e.LoadTranscript(ctx),
		Archive:    e.LoadArchive(ctx),
		Subjects:   e.ListSubjects(ctx),
	}
}

// ImportResult counts what Import applied.
type ImportResult struct {
	Transcript int `json:"transcript" yaml:"transcript"`
	Archive    int `json:"archive" yaml:"archive"`
	Subjects   int `json:"subjects" yaml:"subjects"`
}

// Import merges a snapshot into the session. Archive entries are appended
// to the archive, transcript entries go through the normal append path so
// the bound holds, and subjects are upserted. Entries with an invalid role
// are skipped.
func (e *Engine) Import(ctx context.Context, snap *Snapshot) (*ImportResult, error) {
	res := &ImportResult{}

	archived := validEntries(snap.Archive, e)
	if len(archived) > 0 {
		unlock := e.locks.lock(e.key(KeyTranscript))
		err := e.archiveEntries(ctx, archived)
		unlock()
		if err != nil {
			return res, err
		}
		res.Archive = len(archived)
	}

	entries := validEntries(snap.Transcript, e)
	if len(entries) > 0 {
		if err := e.appendEntries(ctx, entries); err != nil {
			return res, err
		}
		res.Transcript = len(entries)
	}

	for _, s := range snap.Subjects {
		key := model.NormalizeSubject(s.Subject)
		if key == "" {
			continue
		}
		if err := e.learn(ctx, key, s.Fact); err != nil {
			return res, err
		}
		res.Subjects++
	}
	return res, nil
}

func validEntries(in []model.ChatEntry, e *Engine) []model.ChatEntry {
	out := make([]model.ChatEntry, 0, len(in))
	for _, entry := range in {
		if !entry.Role.Valid() {
			continue
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = e.now().UTC()
		}
		if entry.ID == "" {
			entry.ID = e.newID(entry.CreatedAt)
		}
		out = append(out, entry)
	}
	return out
}
