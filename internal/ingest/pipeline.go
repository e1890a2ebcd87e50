package ingest

import (
	"context"
	"fmt"

	"docchat/internal/domain"
	"docchat/internal/logger"
)

// Pipeline runs the per-document processing job: chunk the annotated
// text, persist the chunk rows, embed the chunk texts, upsert the
// vectors. The steps are strictly sequential because each depends on the
// previous step's output; independent documents run in parallel on the
// runner. Chunk persistence and vector upsert are not transactionally
// linked: a crash between them leaves the document in processing, which
// never silently advances to ready, so pollers can detect and re-ingest.
type Pipeline struct {
	docs    domain.DocumentStore
	chunker domain.Chunker
	embed   domain.Embedder
	index   domain.VectorIndex
	tracker domain.JobTracker
	log     logger.Logger
}

func NewPipeline(
	docs domain.DocumentStore,
	chunker domain.Chunker,
	embed domain.Embedder,
	index domain.VectorIndex,
	tracker domain.JobTracker,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{docs: docs, chunker: chunker, embed: embed, index: index, tracker: tracker, log: log}
}

// Process executes the job for one document. Any step failure marks the
// document failed; there is no automatic retry and no mid-job abort.
func (p *Pipeline) Process(ctx context.Context, documentID int64, text string) error {
	log := p.log.With("document_id", documentID)

	if err := p.docs.UpdateDocumentStatus(ctx, documentID, domain.StatusProcessing); err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("mark processing: %w", err))
	}
	p.tracker.Update(ctx, documentID, domain.JobProgress{
		Status: domain.StatusProcessing, Progress: 10, Message: "chunking document",
	})

	pieces := p.chunker.Split(text)
	log.Info("document chunked", "chunks", len(pieces))
	chunks, err := p.docs.InsertChunks(ctx, documentID, pieces)
	if err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("persist chunks: %w", err))
	}
	p.tracker.Update(ctx, documentID, domain.JobProgress{
		Status: domain.StatusProcessing, Progress: 40, Message: "embedding chunks",
	})

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors := p.embed.Embed(ctx, texts)
	p.tracker.Update(ctx, documentID, domain.JobProgress{
		Status: domain.StatusProcessing, Progress: 70, Message: "indexing vectors",
	})

	if err := p.index.Upsert(ctx, chunks, vectors); err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("index vectors: %w", err))
	}

	if err := p.docs.UpdateDocumentStatus(ctx, documentID, domain.StatusReady); err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("mark ready: %w", err))
	}
	p.tracker.Update(ctx, documentID, domain.JobProgress{
		Status: domain.StatusReady, Progress: 100, Message: "document ready",
	})
	log.Info("document processed", "chunks", len(chunks))
	return nil
}

func (p *Pipeline) fail(ctx context.Context, documentID int64, cause error) error {
	p.log.Error("document processing failed", "document_id", documentID, "error", cause)
	if err := p.docs.UpdateDocumentStatus(ctx, documentID, domain.StatusFailed); err != nil {
		p.log.Error("could not mark document failed", "document_id", documentID, "error", err)
	}
	p.tracker.Update(ctx, documentID, domain.JobProgress{
		Status: domain.StatusFailed, Progress: 100, Message: cause.Error(),
	})
	return cause
}
