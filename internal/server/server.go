package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/domain"
	"docchat/internal/ingest"
	"docchat/internal/logger"
	"docchat/internal/ratelimit"
	"docchat/internal/service"
)

// Pinger reports reachability of one external dependency for health checks.
type Pinger func(ctx context.Context) error

// Server exposes the ingestion and question-answering HTTP surface.
type Server struct {
	engine  *gin.Engine
	ingest  *ingest.Service
	qa      *service.QA
	gate    *ratelimit.Gate
	docs    domain.DocumentStore
	jobs    domain.JobTracker
	pingers map[string]Pinger
	log     logger.Logger
}

func New(
	ingestSvc *ingest.Service,
	qa *service.QA,
	gate *ratelimit.Gate,
	docs domain.DocumentStore,
	jobs domain.JobTracker,
	pingers map[string]Pinger,
	log logger.Logger,
) *Server {
	s := &Server{
		engine:  gin.New(),
		ingest:  ingestSvc,
		qa:      qa,
		gate:    gate,
		docs:    docs,
		jobs:    jobs,
		pingers: pingers,
		log:     log,
	}
	s.engine.Use(gin.Recovery(), requestLogger(log))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.POST("/ingest", s.handleIngest)
	s.engine.POST("/ask", s.handleAsk)
	s.engine.GET("/documents/:id", s.handleGetDocument)
	s.engine.GET("/jobs/:id", s.handleGetJob)
	s.engine.GET("/healthz", s.handleHealth)
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is canceled, then drains with a grace period.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("http server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
