package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"docchat/internal/logger"
)

// DefaultDimension matches text-embedding-3-small.
const DefaultDimension = 1536

// Gateway converts text into fixed-dimension vectors through a batching
// provider client. Provider failure degrades to all-zero vectors instead
// of propagating: callers retrieve poorly but the pipeline never crashes
// on an embedding outage. Consumers that need exact correctness can
// detect the degraded result with IsZero.
type Gateway struct {
	embedder  embeddings.Embedder
	dimension int
	log       logger.Logger
}

// New wraps a provider client in a batching embedder.
func New(client embeddings.EmbedderClient, dimension, batchSize int, log logger.Logger) (*Gateway, error) {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &Gateway{embedder: embedder, dimension: dimension, log: log}, nil
}

// Dimension returns the expected vector length.
func (g *Gateway) Dimension() int { return g.dimension }

// Embed returns one vector per input text, same order. All inputs go out
// in batched provider calls.
func (g *Gateway) Embed(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}
	vectors, err := g.embedder.EmbedDocuments(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		g.log.Warn("embedding provider failed, degrading to zero vectors",
			"texts", len(texts), "error", err)
		return g.zeroVectors(len(texts))
	}
	return vectors
}

// EmbedOne embeds a single text.
func (g *Gateway) EmbedOne(ctx context.Context, text string) []float32 {
	vector, err := g.embedder.EmbedQuery(ctx, text)
	if err != nil || len(vector) == 0 {
		g.log.Warn("embedding provider failed, degrading to zero vector", "error", err)
		return make([]float32, g.dimension)
	}
	return vector
}

func (g *Gateway) zeroVectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, g.dimension)
	}
	return out
}

// IsZero reports whether a vector is the degraded all-zero result.
func IsZero(vector []float32) bool {
	for _, v := range vector {
		if v != 0 {
			return false
		}
	}
	return true
}
