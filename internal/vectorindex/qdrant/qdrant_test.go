package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func TestStore(t *testing.T) {
	t.Run("ShouldFilterSearchByDocumentID", func(t *testing.T) {
		var captured map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/collections/embeddings/points/search", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":[{"id":42,"score":0.91,"payload":{"chunk_id":42,"document_id":7}},{"id":43,"score":0.40,"payload":{"chunk_id":43,"document_id":7}}]}`))
		}))
		defer srv.Close()

		store := NewStore(Config{URL: srv.URL})
		matches, err := store.Search(context.Background(), []float32{0.1, 0.2}, 6, 7)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, int64(42), matches[0].ChunkID)
		assert.InDelta(t, 0.91, matches[0].Score, 1e-9)

		filter, ok := captured["filter"].(map[string]any)
		require.True(t, ok, "document-scoped search must carry a filter")
		must := filter["must"].([]any)
		cond := must[0].(map[string]any)
		assert.Equal(t, "document_id", cond["key"])
	})

	t.Run("ShouldOmitFilterOnlyForExplicitUnscopedSearch", func(t *testing.T) {
		var captured map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_, _ = w.Write([]byte(`{"result":[]}`))
		}))
		defer srv.Close()

		store := NewStore(Config{URL: srv.URL})
		_, err := store.Search(context.Background(), []float32{0.1}, 3, 0)
		require.NoError(t, err)
		_, hasFilter := captured["filter"]
		assert.False(t, hasFilter)
	})

	t.Run("ShouldUpsertPointsKeyedByChunkID", func(t *testing.T) {
		var captured map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPut, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}))
		defer srv.Close()

		store := NewStore(Config{URL: srv.URL, Collection: "embeddings"})
		chunks := []domain.Chunk{{ID: 5, DocumentID: 2}}
		err := store.Upsert(context.Background(), chunks, [][]float32{{0.5, 0.5}})
		require.NoError(t, err)

		points := captured["points"].([]any)
		require.Len(t, points, 1)
		point := points[0].(map[string]any)
		assert.EqualValues(t, 5, point["id"])
		payload := point["payload"].(map[string]any)
		assert.EqualValues(t, 5, payload["chunk_id"])
		assert.EqualValues(t, 2, payload["document_id"])
	})

	t.Run("ShouldRejectLengthMismatch", func(t *testing.T) {
		store := NewStore(Config{URL: "http://localhost:6333"})
		err := store.Upsert(context.Background(), []domain.Chunk{{ID: 1}}, nil)
		assert.Error(t, err)
	})

	t.Run("ShouldSurfaceServerErrors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		store := NewStore(Config{URL: srv.URL})
		_, err := store.Search(context.Background(), []float32{0.1}, 3, 1)
		assert.Error(t, err)
	})
}
