package ingest

import (
	"context"
	"sync"

	"docchat/internal/logger"
)

// Runner executes document jobs in the background. One goroutine per
// dispatched document, bounded by a semaphore; a job once dispatched
// runs to completion or failure, there is no cancellation primitive.
type Runner struct {
	pipeline *Pipeline
	log      logger.Logger
	sem      chan struct{}
	wg       sync.WaitGroup
}

func NewRunner(pipeline *Pipeline, workers int, log logger.Logger) *Runner {
	if workers <= 0 {
		workers = 4
	}
	return &Runner{
		pipeline: pipeline,
		log:      log,
		sem:      make(chan struct{}, workers),
	}
}

// Dispatch queues one document for processing and returns immediately.
func (r *Runner) Dispatch(documentID int64, text string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
		// Detached from the request context: the upload response does
		// not wait for processing.
		if err := r.pipeline.Process(context.Background(), documentID, text); err != nil {
			r.log.Error("ingestion job failed", "document_id", documentID, "error", err)
		}
	}()
}

// Wait blocks until all dispatched jobs finish. Used on shutdown and in
// tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
