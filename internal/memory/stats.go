package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/rcliao/kernel-memory/internal/kv"
)

// Stats holds per-session statistics.
type Stats struct {
	Namespace         string `json:"ns" yaml:"ns"`
	TranscriptLimit   int    `json:"transcript_limit" yaml:"transcript_limit"`
	TranscriptEntries int    `json:"transcript_entries" yaml:"transcript_entries"`
	ArchiveEntries    int    `json:"archive_entries" yaml:"archive_entries"`
	Subjects          int    `json:"subjects" yaml:"subjects"`
	TranscriptBytes   int    `json:"transcript_bytes" yaml:"transcript_bytes"`
	ArchiveBytes      int    `json:"archive_bytes" yaml:"archive_bytes"`
	SubjectBytes      int    `json:"subject_bytes" yaml:"subject_bytes"`
}

// Stats returns counts and blob sizes for the session.
func (e *Engine) Stats(ctx context.Context) *Stats {
	st := &Stats{
		Namespace:         e.ns,
		TranscriptLimit:   e.limit,
		TranscriptEntries: len(e.LoadTranscript(ctx)),
		ArchiveEntries:    len(e.LoadArchive(ctx)),
		Subjects:          len(e.ListSubjects(ctx)),
	}
	st.TranscriptBytes = e.blobSize(ctx, KeyTranscript)
	st.ArchiveBytes = e.blobSize(ctx, KeyArchive)
	st.SubjectBytes = e.blobSize(ctx, KeySubjects)
	return st
}

func (e *Engine) blobSize(ctx context.Context, name string) int {
	raw, _, err := e.store.Get(ctx, e.key(name))
	if err != nil {
		return 0
	}
	return len(raw)
}

// NamespaceStats lists which blobs a namespace holds.
type NamespaceStats struct {
	NS    string   `json:"ns" yaml:"ns"`
	Blobs []string `json:"blobs" yaml:"blobs"`
}

// ListNamespaces groups stored keys by namespace. The default namespace is
// reported as "".
func ListNamespaces(ctx context.Context, store kv.Store) ([]NamespaceStats, error) {
	keys, err := store.Keys(ctx, "")
	if err != nil {
		return nil, err
	}

	byNS := map[string][]string{}
	for _, k := range keys {
		ns, name := "", k
		if i := strings.LastIndex(k, "/"); i >= 0 {
			ns, name = k[:i], k[i+1:]
		}
		switch name {
		case KeyTranscript, KeyArchive, KeySubjects:
			byNS[ns] = append(byNS[ns], name)
		}
	}

	out := make([]NamespaceStats, 0, len(byNS))
	for ns, blobs := range byNS {
		sort.Strings(blobs)
		out = append(out, NamespaceStats{NS: ns, Blobs: blobs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NS < out[j].NS })
	return out, nil
}
