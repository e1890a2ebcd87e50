package service

import (
	"context"

	"docchat/internal/domain"
	"docchat/internal/logger"
	"docchat/internal/retriever"
)

// Per-sub-question search keeps top_k small; the aggregated list is
// what gets widened. The fallback single search uses the wide top_k.
const (
	subQuestionTopK = 3
	fallbackTopK    = 8
)

const (
	StatusSuccess   = "success"
	StatusNoResults = "no_results"
	StatusError     = "error"
)

// Answer is the caller-facing response for a question.
type Answer struct {
	Question         string            `json:"question"`
	Answer           string            `json:"answer"`
	Citations        []domain.Citation `json:"citations"`
	TotalChunksFound int               `json:"total_chunks_found"`
	Status           string            `json:"status"`
	Cached           bool              `json:"cached"`
}

// QA orchestrates the question-answering path: cache lookup, question
// decomposition, multi-query retrieval with a simple-search fallback,
// synthesis, and cache write-back.
type QA struct {
	planner domain.Planner
	embed   domain.Embedder
	search  domain.Retriever
	synth   domain.Synthesizer
	cache   domain.AnswerCache
	log     logger.Logger
}

func NewQA(
	planner domain.Planner,
	embed domain.Embedder,
	search domain.Retriever,
	synth domain.Synthesizer,
	cache domain.AnswerCache,
	log logger.Logger,
) *QA {
	return &QA{planner: planner, embed: embed, search: search, synth: synth, cache: cache, log: log}
}

// Ask answers a question against one document. It never returns an
// error: provider and storage failures degrade per component, and the
// weakest outcome is a no_results response.
func (q *QA) Ask(ctx context.Context, question string, documentID int64) *Answer {
	if cached, ok := q.cache.Get(ctx, question); ok {
		q.log.Info("answer served from cache", "document_id", documentID)
		return &Answer{
			Question:         question,
			Answer:           cached.Answer,
			Citations:        cached.Citations,
			TotalChunksFound: len(cached.Citations),
			Status:           StatusSuccess,
			Cached:           true,
		}
	}

	candidates := q.retrieve(ctx, question, documentID)
	if len(candidates) == 0 {
		return &Answer{
			Question:  question,
			Answer:    "I cannot find sufficient information to answer this question.",
			Citations: []domain.Citation{},
			Status:    StatusNoResults,
		}
	}

	answer, citations, err := q.synth.Synthesize(ctx, question, candidates)
	if err != nil {
		// A degraded answer is returned to this caller but never cached,
		// so the next equivalent question retries the provider.
		q.log.Warn("synthesis failed, skipping cache write", "document_id", documentID, "error", err)
		return &Answer{
			Question:         question,
			Answer:           answer,
			Citations:        citations,
			TotalChunksFound: len(candidates),
			Status:           StatusError,
		}
	}
	q.cache.Set(ctx, question, &domain.CachedAnswer{
		Answer:     answer,
		Citations:  citations,
		DocumentID: documentID,
	})

	return &Answer{
		Question:         question,
		Answer:           answer,
		Citations:        citations,
		TotalChunksFound: len(candidates),
		Status:           StatusSuccess,
	}
}

// retrieve runs the decomposed multi-query search. A planner failure or
// a too-thin aggregate falls back to a single wide search on the raw
// question, so retrieval never depends on the planner being up.
func (q *QA) retrieve(ctx context.Context, question string, documentID int64) []domain.RetrievalCandidate {
	plan, err := q.planner.Plan(ctx, question)
	if err != nil {
		q.log.Warn("question decomposition failed, using simple search", "error", err)
		return q.simpleSearch(ctx, question, documentID)
	}

	lists := make([][]domain.RetrievalCandidate, 0, len(plan.SubQuestions))
	for _, sub := range plan.SubQuestions {
		vector := q.embed.EmbedOne(ctx, sub)
		lists = append(lists, q.search.Search(ctx, vector, subQuestionTopK, documentID))
	}

	unique := retriever.Aggregate(lists)
	if retriever.BelowFloor(unique) {
		q.log.Info("decomposed search too thin, falling back to simple search",
			"sub_questions", len(plan.SubQuestions), "unique_chunks", len(unique))
		return q.simpleSearch(ctx, question, documentID)
	}
	return unique
}

func (q *QA) simpleSearch(ctx context.Context, question string, documentID int64) []domain.RetrievalCandidate {
	vector := q.embed.EmbedOne(ctx, question)
	return q.search.Search(ctx, vector, fallbackTopK, documentID)
}
