package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/domain"
	"docchat/internal/ingest"
	"docchat/internal/logger"
	"docchat/internal/store"
)

type askRequest struct {
	Question   string `json:"question" binding:"required"`
	DocumentID int64  `json:"document_id"`
}

func (s *Server) handleIngest(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file form field is required"})
		return
	}
	log := logger.FromContext(c.Request.Context())
	contentType := header.Header.Get("Content-Type")
	if contentType != "application/pdf" && !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		log.Warn("invalid upload type", "filename", header.Filename, "content_type", contentType)
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be a PDF"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, ingest.MaxFileSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}

	result, err := s.ingest.Ingest(c.Request.Context(), header.Filename, content)
	switch {
	case errors.Is(err, ingest.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file size exceeds the maximum allowed size of 10MB"})
	case errors.Is(err, ingest.ErrUnreadable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case err != nil:
		log.Error("ingestion failed", "filename", header.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	verdict := s.gate.Check(c.Request.Context(), c.ClientIP())
	if !verdict.Allowed {
		c.Header("Retry-After", strconv.Itoa(int(verdict.RetryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": verdict.RetryAfter.Seconds(),
		})
		return
	}

	c.JSON(http.StatusOK, s.qa.Ask(c.Request.Context(), req.Question, req.DocumentID))
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	doc, err := s.docs.GetDocument(c.Request.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	case err != nil:
		s.log.Error("document lookup failed", "document_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	default:
		c.JSON(http.StatusOK, doc)
	}
}

func (s *Server) handleGetJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id format"})
		return
	}
	doc, err := s.docs.GetDocument(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		s.log.Error("job lookup failed", "document_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	// Live progress from redis when present, document status otherwise.
	progress, ok := s.jobs.Get(c.Request.Context(), id)
	if !ok {
		pct := 0
		if doc.Status == domain.StatusReady {
			pct = 100
		}
		progress = &domain.JobProgress{Status: doc.Status, Progress: pct}
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":      id,
		"document_id": doc.ID,
		"title":       doc.Title,
		"status":      progress.Status,
		"progress":    progress.Progress,
		"message":     progress.Message,
		"created_at":  doc.CreatedAt,
		"updated_at":  doc.UpdatedAt,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := gin.H{}
	healthy := true
	for name, ping := range s.pingers {
		if err := ping(ctx); err != nil {
			deps[name] = "unreachable"
			healthy = false
			continue
		}
		deps[name] = "ok"
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "dependencies": deps})
}
