package memory

import (
	"context"
	"math"

	"github.com/rcliao/kernel-memory/internal/embedding"
	"github.com/rcliao/kernel-memory/internal/model"
)

// ContextParams holds parameters for context assembly.
type ContextParams struct {
	Query     string
	Budget    int // max tokens in output (rough proxy: 1 token ≈ 4 chars)
	Recent    int // max transcript entries to consider
	K         int
	Threshold float64
}

// ContextFact is a scored fact for context output.
type ContextFact struct {
	Subject string  `json:"subject" yaml:"subject"`
	Fact    string  `json:"fact" yaml:"fact"`
	Score   float64 `json:"score" yaml:"score"`
	Excerpt bool    `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
}

// ContextResult is the assembled context response.
type ContextResult struct {
	Budget  int               `json:"budget" yaml:"budget"`
	Used    int               `json:"used" yaml:"used"`
	Facts   []ContextFact     `json:"facts" yaml:"facts"`
	History []model.ChatEntry `json:"history" yaml:"history"`
}

// Context assembles relevant facts and recent history within a token
// budget. Facts are packed first in similarity order, then the newest
// transcript entries fill what is left. History is returned oldest first.
func (e *Engine) Context(ctx context.Context, p ContextParams) *ContextResult {
	budget := p.Budget
	if budget <= 0 {
		budget = 1000
	}
	recent := p.Recent
	if recent <= 0 {
		recent = 20
	}
	charBudget := budget * 4

	result := &ContextResult{Budget: budget, Facts: []ContextFact{}, History: []model.ChatEntry{}}
	used := 0

	if p.Query != "" {
		for _, s := range e.SimilaritySearch(ctx, p.Query, p.K, p.Threshold) {
			score := math.Round(s.Score*100) / 100
			if used+len(s.Fact) <= charBudget {
				result.Facts = append(result.Facts, ContextFact{Subject: s.Subject, Fact: s.Fact, Score: score})
				used += len(s.Fact)
			} else if remaining := charBudget - used; remaining >= 100 {
				excerpt := e.bestPassage(ctx, p.Query, s.Fact, remaining-3) + "..."
				result.Facts = append(result.Facts, ContextFact{Subject: s.Subject, Fact: excerpt, Score: score, Excerpt: true})
				used += len(excerpt)
				break
			} else {
				break
			}
		}
	}

	history := e.RecentMessages(ctx, recent)
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		n := len(history[i].Text)
		if used+n > charBudget {
			break
		}
		used += n
		start = i
	}
	result.History = append(result.History, history[start:]...)

	result.Used = used / 4
	return result
}

// bestPassage returns the passage of fact, at most size bytes, that is most
// similar to query. Ties keep the earliest passage.
func (e *Engine) bestPassage(ctx context.Context, query, fact string, size int) string {
	passages := splitPassages(fact, size)
	if len(passages) == 0 {
		return ""
	}
	qv, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.warn("context.embed", err)
		return passages[0]
	}
	best, bestScore := 0, -1.0
	for i, passage := range passages {
		pv, err := e.embedder.Embed(ctx, passage)
		if err != nil {
			e.warn("context.embed", err)
			break
		}
		if score := embedding.CosineSimilarity(qv, pv); score > bestScore {
			best, bestScore = i, score
		}
	}
	return passages[best]
}
