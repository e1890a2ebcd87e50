package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"docchat/internal/domain"
	"docchat/internal/logger"
	"docchat/internal/store"
)

// MaxFileSize caps uploads at 10 MiB.
const MaxFileSize = 10 * 1024 * 1024

// markerTTL keeps the fingerprint fast path warm for a month.
const markerTTL = 30 * 24 * time.Hour

var (
	ErrTooLarge   = errors.New("file size exceeds the maximum allowed size")
	ErrUnreadable = errors.New("failed to read pdf file")
)

// Result is the upload-side response for an ingestion request.
type Result struct {
	DocumentID  int64  `json:"document_id"`
	Status      string `json:"status"`
	Pages       int    `json:"pages,omitempty"`
	ContentHash string `json:"content_hash"`
	FileSize    int64  `json:"file_size,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Service validates uploads, enforces idempotent ingestion by content
// fingerprint, and dispatches new documents to the background runner.
type Service struct {
	docs   domain.DocumentStore
	client redis.UniversalClient
	runner *Runner
	log    logger.Logger
}

func NewService(docs domain.DocumentStore, client redis.UniversalClient, runner *Runner, log logger.Logger) *Service {
	return &Service{docs: docs, client: client, runner: runner, log: log}
}

// Fingerprint is the deterministic content hash documents are identified by.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Ingest resolves identical bytes to the existing document without
// re-processing; otherwise it creates a queued document and dispatches
// the processing job. The fingerprint check runs before any chunking or
// embedding work so duplicate uploads cost nothing.
func (s *Service) Ingest(ctx context.Context, filename string, content []byte) (*Result, error) {
	if int64(len(content)) > MaxFileSize {
		return nil, ErrTooLarge
	}
	contentHash := Fingerprint(content)
	log := s.log.With("content_hash", contentHash[:16])

	// Redis marker first, documents table second.
	if cached, err := s.client.Get(ctx, markerKey(contentHash)).Result(); err == nil {
		if id, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			if doc, getErr := s.docs.GetDocument(ctx, id); getErr == nil {
				log.Info("document already ingested", "document_id", doc.ID, "source", "cache")
				return existingResult(doc), nil
			}
		}
	}
	if doc, err := s.docs.GetDocumentByHash(ctx, contentHash); err == nil {
		log.Info("document already ingested", "document_id", doc.ID, "source", "database")
		s.setMarker(ctx, contentHash, doc.ID)
		return existingResult(doc), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("idempotency check: %w", err)
	}

	text, pages, err := ExtractPages(content)
	if err != nil {
		log.Warn("pdf extraction failed", "filename", filename, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	title := filename
	if title == "" {
		title = "Untitled Document"
	}
	doc := &domain.Document{
		ContentHash: contentHash,
		Title:       title,
		Pages:       pages,
		Bytes:       int64(len(content)),
		Status:      domain.StatusQueued,
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.setMarker(ctx, contentHash, doc.ID)
	s.runner.Dispatch(doc.ID, text)
	log.Info("document queued for processing", "document_id", doc.ID, "pages", pages)

	return &Result{
		DocumentID:  doc.ID,
		Status:      doc.Status,
		Pages:       pages,
		ContentHash: contentHash,
		FileSize:    doc.Bytes,
	}, nil
}

func markerKey(contentHash string) string {
	return "doc:hash:" + contentHash
}

func (s *Service) setMarker(ctx context.Context, contentHash string, documentID int64) {
	if err := s.client.Set(ctx, markerKey(contentHash), strconv.FormatInt(documentID, 10), markerTTL).Err(); err != nil {
		s.log.Warn("idempotency marker write failed", "document_id", documentID, "error", err)
	}
}

func existingResult(doc *domain.Document) *Result {
	return &Result{
		DocumentID:  doc.ID,
		Status:      doc.Status,
		ContentHash: doc.ContentHash,
		Message:     "document already ingested",
	}
}
