package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"docchat/internal/domain"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a document or chunk does not exist.
var ErrNotFound = errors.New("not found")

// DB is the subset of pgxpool.Pool the repository needs. Narrow on
// purpose so pgxmock can stand in during tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres persists documents and their chunks.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the tables when they do not exist yet. Schema
// evolution beyond that is handled outside this service.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	err := row.Scan(
		&doc.ID,
		&doc.ContentHash,
		&doc.Title,
		&doc.Pages,
		&doc.Bytes,
		&doc.Status,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (p *Postgres) CreateDocument(ctx context.Context, doc *domain.Document) error {
	query := `INSERT INTO documents (content_hash, title, pages, bytes, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at`
	err := p.db.QueryRow(ctx, query,
		doc.ContentHash,
		doc.Title,
		doc.Pages,
		doc.Bytes,
		doc.Status,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (p *Postgres) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	query := `SELECT id, content_hash, title, pages, bytes, status, created_at, updated_at
FROM documents
WHERE id = $1`
	doc, err := scanDocument(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	return doc, nil
}

// GetDocumentByHash resolves a content fingerprint to the existing
// document, if any. This is the idempotency fast path for re-ingestion.
func (p *Postgres) GetDocumentByHash(ctx context.Context, contentHash string) (*domain.Document, error) {
	query := `SELECT id, content_hash, title, pages, bytes, status, created_at, updated_at
FROM documents
WHERE content_hash = $1`
	doc, err := scanDocument(p.db.QueryRow(ctx, query, contentHash))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get document by hash: %w", err)
	}
	return doc, nil
}

func (p *Postgres) UpdateDocumentStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE documents SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := p.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update document %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertChunks persists chunker output in ordinal order and returns the
// stored rows with their assigned ids.
func (p *Postgres) InsertChunks(ctx context.Context, documentID int64, pieces []domain.ChunkPiece) ([]domain.Chunk, error) {
	query := `INSERT INTO chunks (document_id, ord, text, page_start, page_end, token_count)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunk := domain.Chunk{
			DocumentID: documentID,
			Ordinal:    piece.Ordinal,
			Text:       piece.Text,
			PageStart:  piece.PageStart,
			PageEnd:    piece.PageEnd,
			TokenCount: piece.TokenCount,
		}
		err := p.db.QueryRow(ctx, query,
			documentID,
			piece.Ordinal,
			piece.Text,
			piece.PageStart,
			piece.PageEnd,
			piece.TokenCount,
		).Scan(&chunk.ID)
		if err != nil {
			return nil, fmt.Errorf("insert chunk %d of document %d: %w", piece.Ordinal, documentID, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (p *Postgres) GetChunk(ctx context.Context, id int64) (*domain.Chunk, error) {
	query := `SELECT id, document_id, ord, text, page_start, page_end, token_count
FROM chunks
WHERE id = $1`
	var chunk domain.Chunk
	err := p.db.QueryRow(ctx, query, id).Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.Ordinal,
		&chunk.Text,
		&chunk.PageStart,
		&chunk.PageEnd,
		&chunk.TokenCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get chunk %d: %w", id, err)
	}
	return &chunk, nil
}

func (p *Postgres) CountChunks(ctx context.Context, documentID int64) (int, error) {
	var count int
	err := p.db.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks of document %d: %w", documentID, err)
	}
	return count, nil
}
