// Package embedding provides text embedding providers and vector math.
package embedding

import (
	"context"
	"fmt"
	"math"
	"os"
	"unicode"

	"github.com/sashabaranov/go-openai"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Epsilon is the norm below which a vector is treated as all-zero.
const Epsilon = 1e-9

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA < Epsilon || normB < Epsilon {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize returns v scaled to unit L2 length. A zero vector is returned
// unchanged.
func Normalize(v Vector) Vector {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make(Vector, len(v))
	norm := math.Sqrt(sum)
	if norm < Epsilon {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Dot is the dot product of two equal-length vectors, 0 otherwise.
func Dot(a, b Vector) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// --- Letter frequency ---

// LetterDims is one slot per lowercase ASCII letter.
const LetterDims = 26

// LetterFrequency embeds text as normalized counts of the letters a-z.
// Every other character is ignored. It is deterministic and needs no
// network, which makes it the default.
type LetterFrequency struct{}

func (LetterFrequency) Embed(_ context.Context, text string) (Vector, error) {
	return LetterVector(text), nil
}

func (LetterFrequency) Dims() int { return LetterDims }

// LetterVector returns the L2-normalized letter-frequency vector of text.
func LetterVector(text string) Vector {
	v := make(Vector, LetterDims)
	for _, r := range text {
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return Normalize(v)
}

// --- OpenAI-compatible Provider ---

// OpenAIEmbedder uses any OpenAI-compatible embedding API, including
// Ollama's /v1 endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAIEmbedder creates an embedder using an OpenAI-compatible API.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dims int) *OpenAIEmbedder {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	if dims == 0 {
		dims = 1536
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dims:   dims,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

func (e *OpenAIEmbedder) Dims() int { return e.dims }

// --- Factory ---

// Options selects an embedding provider.
type Options struct {
	Provider string // "letters" (default) | "openai"
	Model    string
	BaseURL  string
	APIKey   string
	Dims     int
}

// New creates an embedder from options. Unknown providers are an error.
// OPENAI_API_KEY is used when the openai provider has no key configured.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case "", "letters":
		return LetterFrequency{}, nil
	case "openai":
		key := opts.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIEmbedder(opts.BaseURL, key, opts.Model, opts.Dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (valid: letters, openai)", opts.Provider)
	}
}
