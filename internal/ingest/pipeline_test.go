package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
	"docchat/internal/logger"
	"docchat/internal/store"
)

type fakeStore struct {
	mu         sync.Mutex
	statuses   []string
	chunks     []domain.Chunk
	insertErr  error
	docsByHash map[string]*domain.Document
	docsByID   map[int64]*domain.Document
	nextID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docsByHash: make(map[string]*domain.Document),
		docsByID:   make(map[int64]*domain.Document),
		nextID:     1,
	}
}

func (f *fakeStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc.ID = f.nextID
	f.nextID++
	f.docsByHash[doc.ContentHash] = doc
	f.docsByID[doc.ID] = doc
	return nil
}

func (f *fakeStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docsByID[id]; ok {
		return doc, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) GetDocumentByHash(_ context.Context, hash string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docsByHash[hash]; ok {
		return doc, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdateDocumentStatus(_ context.Context, _ int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) InsertChunks(_ context.Context, documentID int64, pieces []domain.ChunkPiece) ([]domain.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			ID: int64(100 + i), DocumentID: documentID, Ordinal: piece.Ordinal,
			Text: piece.Text, PageStart: piece.PageStart, PageEnd: piece.PageEnd,
			TokenCount: piece.TokenCount,
		}
	}
	f.chunks = append(f.chunks, chunks...)
	return chunks, nil
}

func (f *fakeStore) GetChunk(context.Context, int64) (*domain.Chunk, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) CountChunks(context.Context, int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks), nil
}

type fakeChunker struct{}

func (fakeChunker) Split(text string) []domain.ChunkPiece {
	if text == "" {
		return nil
	}
	return []domain.ChunkPiece{
		{Ordinal: 0, Text: text, TokenCount: 3, PageStart: 1, PageEnd: 1},
	}
}

type fakeEmbedder struct{ dimension int }

func (f fakeEmbedder) Embed(_ context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, f.dimension)
	}
	return out
}

func (f fakeEmbedder) EmbedOne(context.Context, string) []float32 {
	return make([]float32, f.dimension)
}

func (f fakeEmbedder) Dimension() int { return f.dimension }

type fakeVectorIndex struct {
	mu       sync.Mutex
	upserted []domain.Chunk
	err      error
}

func (f *fakeVectorIndex) Upsert(_ context.Context, chunks []domain.Chunk, _ [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *fakeVectorIndex) Search(context.Context, []float32, int, int64) ([]domain.VectorMatch, error) {
	return nil, nil
}

type memoryTracker struct {
	mu      sync.Mutex
	updates map[int64][]domain.JobProgress
}

func newMemoryTracker() *memoryTracker {
	return &memoryTracker{updates: make(map[int64][]domain.JobProgress)}
}

func (m *memoryTracker) Update(_ context.Context, documentID int64, progress domain.JobProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[documentID] = append(m.updates[documentID], progress)
}

func (m *memoryTracker) Get(_ context.Context, documentID int64) (*domain.JobProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.updates[documentID]
	if len(list) == 0 {
		return nil, false
	}
	return &list[len(list)-1], true
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldRunStepsInSequenceAndMarkReady", func(t *testing.T) {
		docs := newFakeStore()
		index := &fakeVectorIndex{}
		tracker := newMemoryTracker()
		p := NewPipeline(docs, fakeChunker{}, fakeEmbedder{dimension: 3}, index, tracker, logger.Nop())

		require.NoError(t, p.Process(ctx, 1, "Some text."))
		assert.Equal(t, []string{domain.StatusProcessing, domain.StatusReady}, docs.statuses)
		require.Len(t, index.upserted, 1)
		assert.Equal(t, int64(1), index.upserted[0].DocumentID)

		progress, ok := tracker.Get(ctx, 1)
		require.True(t, ok)
		assert.Equal(t, domain.StatusReady, progress.Status)
		assert.Equal(t, 100, progress.Progress)
	})

	t.Run("ShouldReportMonotonicProgress", func(t *testing.T) {
		tracker := newMemoryTracker()
		p := NewPipeline(newFakeStore(), fakeChunker{}, fakeEmbedder{dimension: 3}, &fakeVectorIndex{}, tracker, logger.Nop())
		require.NoError(t, p.Process(ctx, 2, "Some text."))

		prev := -1
		for _, update := range tracker.updates[2] {
			assert.GreaterOrEqual(t, update.Progress, prev)
			prev = update.Progress
		}
	})

	t.Run("ShouldMarkFailedWhenPersistenceFails", func(t *testing.T) {
		docs := newFakeStore()
		docs.insertErr = errors.New("db down")
		tracker := newMemoryTracker()
		p := NewPipeline(docs, fakeChunker{}, fakeEmbedder{dimension: 3}, &fakeVectorIndex{}, tracker, logger.Nop())

		err := p.Process(ctx, 3, "Some text.")
		require.Error(t, err)
		assert.Equal(t, domain.StatusFailed, docs.statuses[len(docs.statuses)-1])
		progress, ok := tracker.Get(ctx, 3)
		require.True(t, ok)
		assert.Equal(t, domain.StatusFailed, progress.Status)
	})

	t.Run("ShouldNeverReachReadyWhenIndexingFails", func(t *testing.T) {
		docs := newFakeStore()
		index := &fakeVectorIndex{err: errors.New("qdrant down")}
		p := NewPipeline(docs, fakeChunker{}, fakeEmbedder{dimension: 3}, index, newMemoryTracker(), logger.Nop())

		require.Error(t, p.Process(ctx, 4, "Some text."))
		assert.NotContains(t, docs.statuses, domain.StatusReady)
		assert.Contains(t, docs.statuses, domain.StatusFailed)
	})
}

func TestRunner(t *testing.T) {
	t.Run("ShouldProcessDispatchedDocumentsInBackground", func(t *testing.T) {
		docs := newFakeStore()
		index := &fakeVectorIndex{}
		p := NewPipeline(docs, fakeChunker{}, fakeEmbedder{dimension: 3}, index, newMemoryTracker(), logger.Nop())
		runner := NewRunner(p, 2, logger.Nop())

		for id := int64(1); id <= 5; id++ {
			runner.Dispatch(id, "Document text.")
		}
		runner.Wait()

		index.mu.Lock()
		defer index.mu.Unlock()
		assert.Len(t, index.upserted, 5)
	})
}
