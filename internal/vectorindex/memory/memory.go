package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"docchat/internal/domain"
)

// Index is an in-memory vector index using brute-force cosine similarity,
// for tests and local development. Vectors are assumed L2-normalized, as
// the embedding provider returns them.
type Index struct {
	mu      sync.RWMutex
	vectors map[int64][]float32
	owners  map[int64]int64
}

func NewIndex() *Index {
	return &Index{
		vectors: make(map[int64][]float32),
		owners:  make(map[int64]int64),
	}
}

func (m *Index) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("memory index: chunks and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range chunks {
		m.vectors[chunks[i].ID] = vectors[i]
		m.owners[chunks[i].ID] = chunks[i].DocumentID
	}
	return nil
}

func (m *Index) Search(_ context.Context, vector []float32, topK int, documentID int64) ([]domain.VectorMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := make([]domain.VectorMatch, 0, len(m.vectors))
	for id, v := range m.vectors {
		if documentID != 0 && m.owners[id] != documentID {
			continue
		}
		matches = append(matches, domain.VectorMatch{ChunkID: id, Score: dot(v, vector)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
