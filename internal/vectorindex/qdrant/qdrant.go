package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docchat/internal/domain"
)

// Store is a minimal REST client to Qdrant. Points are keyed by chunk id
// and tagged with the owning document id so searches can be scoped to one
// document by payload filter.
type Store struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "embeddings"
	}
	return &Store{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if missing. Qdrant answers 200
// when it already exists with the same schema.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("qdrant: invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body, nil)
}

func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("qdrant: chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		points[i] = map[string]any{
			"id":     chunks[i].ID,
			"vector": vectors[i],
			"payload": map[string]any{
				"chunk_id":    chunks[i].ID,
				"document_id": chunks[i].DocumentID,
			},
		}
	}
	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", s.collection)
	return s.doRequest(ctx, http.MethodPut, path, body, nil)
}

// Search returns up to topK nearest points ordered by descending score.
// A non-zero documentID adds a mandatory exact-match payload filter;
// zero means a deliberate cross-document search.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, documentID int64) ([]domain.VectorMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	request := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if documentID != 0 {
		request["filter"] = map[string]any{
			"must": []any{
				map[string]any{
					"key":   "document_id",
					"match": map[string]any{"value": documentID},
				},
			},
		}
	}
	var response struct {
		Result []struct {
			ID      json.Number    `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", s.collection)
	if err := s.doRequest(ctx, http.MethodPost, path, request, &response); err != nil {
		return nil, err
	}
	matches := make([]domain.VectorMatch, 0, len(response.Result))
	for _, r := range response.Result {
		id, err := r.ID.Int64()
		if err != nil {
			continue
		}
		matches = append(matches, domain.VectorMatch{ChunkID: id, Score: r.Score})
	}
	return matches, nil
}

func (s *Store) doRequest(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("qdrant: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("qdrant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("qdrant: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: %s %s failed with status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("qdrant: decode response: %w", err)
		}
	}
	return nil
}
