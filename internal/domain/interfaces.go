package domain

import "context"

// Chunker splits marker-annotated text into token-bounded pieces.
type Chunker interface {
	Split(text string) []ChunkPiece
}

// Embedder converts text into fixed-dimension vectors. Implementations
// batch where possible and degrade to zero vectors on provider failure.
type Embedder interface {
	Embed(ctx context.Context, texts []string) [][]float32
	EmbedOne(ctx context.Context, text string) []float32
	Dimension() int
}

// Planner decomposes a question into sub-questions via the completion
// provider. An error means callers should fall back to the raw question.
type Planner interface {
	Plan(ctx context.Context, question string) (*Decomposition, error)
}

// Retriever runs a similarity search scoped to a document and joins the
// hits back to persisted chunk rows. documentID == 0 means unscoped
// search, which must be a deliberate caller choice.
type Retriever interface {
	Search(ctx context.Context, vector []float32, topK int, documentID int64) []RetrievalCandidate
}

// Synthesizer produces an answer plus per-candidate citations. On
// provider failure it still returns a descriptive answer and quote-less
// citations, but the error is non-nil so callers can avoid treating the
// degraded result as a real answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, candidates []RetrievalCandidate) (string, []Citation, error)
}

// DocumentStore persists documents and chunks.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id int64) (*Document, error)
	GetDocumentByHash(ctx context.Context, contentHash string) (*Document, error)
	UpdateDocumentStatus(ctx context.Context, id int64, status string) error
	InsertChunks(ctx context.Context, documentID int64, pieces []ChunkPiece) ([]Chunk, error)
	GetChunk(ctx context.Context, id int64) (*Chunk, error)
	CountChunks(ctx context.Context, documentID int64) (int, error)
}

// VectorIndex stores embedding vectors keyed by chunk id and supports
// nearest-neighbor search filtered by owning document.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int, documentID int64) ([]VectorMatch, error)
}

// VectorMatch is a raw index hit before the chunk-row join.
type VectorMatch struct {
	ChunkID int64
	Score   float64
}

// AnswerCache serves previously synthesized answers keyed by the
// normalized question.
type AnswerCache interface {
	Get(ctx context.Context, question string) (*CachedAnswer, bool)
	Set(ctx context.Context, question string, answer *CachedAnswer)
}

// JobTracker records coarse ingestion progress for polling.
type JobTracker interface {
	Update(ctx context.Context, documentID int64, progress JobProgress)
	Get(ctx context.Context, documentID int64) (*JobProgress, bool)
}
