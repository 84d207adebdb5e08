package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/rcliao/kernel-memory/internal/embedding"
	"github.com/rcliao/kernel-memory/internal/model"
)

// DefaultSimilarityK is used when SimilaritySearch is called with k <= 0.
const DefaultSimilarityK = 5

// ScoredSubject is a learned subject with its similarity to a query.
type ScoredSubject struct {
	model.LearnedSubject
	Score float64 `json:"score" yaml:"score"`
}

// SearchTranscript returns every transcript entry whose text contains query,
// ignoring case, in transcript order. An empty query matches nothing.
func (e *Engine) SearchTranscript(ctx context.Context, query string) []model.ChatEntry {
	return matchEntries(e.LoadTranscript(ctx), query)
}

// SearchArchive is SearchTranscript over the archive.
func (e *Engine) SearchArchive(ctx context.Context, query string) []model.ChatEntry {
	return matchEntries(e.LoadArchive(ctx), query)
}

func matchEntries(entries []model.ChatEntry, query string) []model.ChatEntry {
	results := []model.ChatEntry{}
	q := strings.ToLower(query)
	if q == "" {
		return results
	}
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Text), q) {
			results = append(results, entry)
		}
	}
	return results
}

// SearchSubjects returns subjects whose key or fact contains query,
// ignoring case, in insertion order.
func (e *Engine) SearchSubjects(ctx context.Context, query string) []model.LearnedSubject {
	results := []model.LearnedSubject{}
	q := strings.ToLower(query)
	if q == "" {
		return results
	}
	for _, s := range e.ListSubjects(ctx) {
		if strings.Contains(s.Subject, q) || strings.Contains(strings.ToLower(s.Fact), q) {
			results = append(results, s)
		}
	}
	return results
}

// SimilaritySearch ranks learned facts by cosine similarity to query and
// returns at most k with a score above threshold. Ties keep insertion order.
func (e *Engine) SimilaritySearch(ctx context.Context, query string, k int, threshold float64) []ScoredSubject {
	if k <= 0 {
		k = DefaultSimilarityK
	}
	results := []ScoredSubject{}

	qv, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.warn("embed query", err)
		return results
	}
	qv = embedding.Normalize(qv)

	for _, s := range e.ListSubjects(ctx) {
		vec := s.Vector
		if len(vec) != len(qv) {
			vec, err = e.embedder.Embed(ctx, s.Fact)
			if err != nil {
				e.warn("embed fact", err)
				continue
			}
		}
		score := embedding.Dot(qv, embedding.Normalize(vec))
		if score > threshold {
			results = append(results, ScoredSubject{LearnedSubject: s, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}
