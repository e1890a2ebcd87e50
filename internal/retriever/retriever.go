package retriever

import (
	"context"
	"errors"

	"docchat/internal/domain"
	"docchat/internal/logger"
	"docchat/internal/store"
)

// Service answers similarity queries against the vector index and joins
// the hits back to persisted chunk rows, so callers always receive
// candidates with the text and page range synthesis needs. Index or join
// failure degrades to an empty result, never an error.
type Service struct {
	index domain.VectorIndex
	docs  domain.DocumentStore
	log   logger.Logger
}

func NewService(index domain.VectorIndex, docs domain.DocumentStore, log logger.Logger) *Service {
	return &Service{index: index, docs: docs, log: log}
}

// Search returns at most topK candidates ordered by descending
// similarity, scoped to documentID when it is non-zero. Passing zero
// deliberately searches across all documents.
func (s *Service) Search(ctx context.Context, vector []float32, topK int, documentID int64) []domain.RetrievalCandidate {
	matches, err := s.index.Search(ctx, vector, topK, documentID)
	if err != nil {
		s.log.Warn("vector search failed, returning no candidates",
			"document_id", documentID, "error", err)
		return nil
	}
	candidates := make([]domain.RetrievalCandidate, 0, len(matches))
	for _, match := range matches {
		chunk, err := s.docs.GetChunk(ctx, match.ChunkID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.log.Warn("indexed chunk has no persisted row, skipping", "chunk_id", match.ChunkID)
				continue
			}
			s.log.Warn("chunk join failed, returning no candidates",
				"chunk_id", match.ChunkID, "error", err)
			return nil
		}
		candidates = append(candidates, domain.RetrievalCandidate{
			ChunkID:    chunk.ID,
			Score:      match.Score,
			Text:       chunk.Text,
			PageStart:  chunk.PageStart,
			PageEnd:    chunk.PageEnd,
			TokenCount: chunk.TokenCount,
		})
	}
	return candidates
}
