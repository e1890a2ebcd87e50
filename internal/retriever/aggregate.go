package retriever

import (
	"sort"

	"docchat/internal/domain"
)

const (
	// MaxAggregated bounds the candidate set handed to synthesis.
	MaxAggregated = 8
	// MinViable is the quality floor: fewer unique candidates than this
	// tells the caller to fall back to a plain single-query retrieval.
	MinViable = 3
)

// Aggregate merges per-sub-question candidate lists: deduplicates by
// chunk identity keeping the first occurrence in input order (stable
// tie-break, not highest-score-wins), sorts by descending similarity and
// truncates to MaxAggregated.
func Aggregate(lists [][]domain.RetrievalCandidate) []domain.RetrievalCandidate {
	seen := make(map[int64]struct{})
	var unique []domain.RetrievalCandidate
	for _, list := range lists {
		for _, candidate := range list {
			if _, ok := seen[candidate.ChunkID]; ok {
				continue
			}
			seen[candidate.ChunkID] = struct{}{}
			unique = append(unique, candidate)
		}
	}
	sort.SliceStable(unique, func(i, j int) bool { return unique[i].Score > unique[j].Score })
	if len(unique) > MaxAggregated {
		unique = unique[:MaxAggregated]
	}
	return unique
}

// BelowFloor reports whether the aggregated set is too small to answer
// from. Not an error: the caller retries with single-query retrieval.
func BelowFloor(candidates []domain.RetrievalCandidate) bool {
	return len(candidates) < MinViable
}
