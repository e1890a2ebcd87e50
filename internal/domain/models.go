package domain

import "time"

// Document lifecycle statuses. A document is created queued, moved to
// processing by the ingestion job, and ends up ready or failed.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Document is an ingested file identified by the hash of its raw bytes.
// Re-ingesting identical bytes resolves to the existing row.
type Document struct {
	ID          int64     `json:"id"`
	ContentHash string    `json:"content_hash"`
	Title       string    `json:"title"`
	Pages       int       `json:"pages"`
	Bytes       int64     `json:"bytes"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Chunk is a token-bounded, page-tagged segment of a document's text,
// the unit of retrieval. Immutable once written.
type Chunk struct {
	ID         int64
	DocumentID int64
	Ordinal    int
	Text       string
	PageStart  int
	PageEnd    int
	TokenCount int
}

// RetrievalCandidate is a chunk matched by vector search, carrying the
// denormalized fields synthesis needs. Never persisted.
type RetrievalCandidate struct {
	ChunkID    int64   `json:"chunk_id"`
	Score      float64 `json:"similarity_score"`
	Text       string  `json:"text"`
	PageStart  int     `json:"page_start"`
	PageEnd    int     `json:"page_end"`
	TokenCount int     `json:"token_count"`
}

// Citation binds a claim in a generated answer to its source chunk.
// ExactText is the quote the model attested to and may be empty when the
// model returned fewer quotes than context blocks.
type Citation struct {
	Text        string `json:"text"`
	PageStart   int    `json:"page_start"`
	PageEnd     int    `json:"page_end"`
	ChunkID     int64  `json:"chunk_id"`
	ExactText   string `json:"exact_text"`
	SearchPages []int  `json:"search_pages"`
}

// Decomposition is the planner's structured view of a question.
type Decomposition struct {
	Complexity   string   `json:"complexity"`
	SubQuestions []string `json:"sub_questions"`
	Reasoning    string   `json:"reasoning"`
}

// CachedAnswer is the flat record stored under a normalized-question key.
type CachedAnswer struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	DocumentID int64      `json:"document_id"`
}

// JobProgress is the coarse per-document processing record used for polling.
// Progress is monotonically non-decreasing within a job.
type JobProgress struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// ChunkPiece is a chunker output segment prior to persistence.
type ChunkPiece struct {
	Ordinal    int
	Text       string
	TokenCount int
	PageStart  int
	PageEnd    int
}
