package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tmc/langchaingo/llms/openai"

	"docchat/internal/answer"
	"docchat/internal/cache"
	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/embedding"
	"docchat/internal/ingest"
	"docchat/internal/logger"
	"docchat/internal/planner"
	"docchat/internal/ratelimit"
	"docchat/internal/retriever"
	"docchat/internal/server"
	"docchat/internal/service"
	"docchat/internal/store"
	"docchat/internal/tokens"
	"docchat/internal/vectorindex/memory"
	"docchat/internal/vectorindex/qdrant"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Config{Level: os.Getenv("LOG_LEVEL")})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Relational store.
	pool, err := pgxpool.New(ctx, cfg.Postgres.Resolve())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	docs := store.NewPostgres(pool)
	if err := docs.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	// Cache, rate limit, and job progress share one redis client.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable at startup, degraded mode", "addr", cfg.Redis.Addr, "error", err)
	}

	// Vector index.
	var index domain.VectorIndex
	switch cfg.VectorIndex.Type {
	case "qdrant", "":
		qs := qdrant.NewStore(qdrant.Config{
			URL:        cfg.VectorIndex.Qdrant.URL,
			APIKey:     cfg.VectorIndex.Qdrant.APIKey,
			Collection: cfg.VectorIndex.Qdrant.Collection,
		})
		if err := qs.EnsureCollection(ctx, cfg.OpenAI.Dimension); err != nil {
			return fmt.Errorf("ensure qdrant collection: %w", err)
		}
		index = qs
	case "memory":
		log.Warn("using in-memory vector index, vectors are lost on restart")
		index = memory.NewIndex()
	default:
		return fmt.Errorf("unknown vector index type %q", cfg.VectorIndex.Type)
	}

	// One OpenAI client serves completions and embeddings.
	llm, err := openai.New(
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithToken(cfg.OpenAI.APIKey()),
		openai.WithModel(cfg.OpenAI.ChatModel),
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
	)
	if err != nil {
		return fmt.Errorf("init openai client: %w", err)
	}
	embedder, err := embedding.New(llm, cfg.OpenAI.Dimension, cfg.OpenAI.BatchSize, log)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	enc, err := tokens.NewEncoder("cl100k_base")
	if err != nil {
		return fmt.Errorf("init tokenizer: %w", err)
	}

	// Ingestion side.
	tracker := ingest.NewRedisTracker(rdb, log)
	pipeline := ingest.NewPipeline(
		docs,
		chunker.NewTokenChunker(enc, cfg.Chunker.TargetTokens, cfg.Chunker.OverlapTokens),
		embedder, index, tracker, log,
	)
	runner := ingest.NewRunner(pipeline, cfg.Ingest.Workers, log)
	ingestSvc := ingest.NewService(docs, rdb, runner, log)

	// Query side.
	qa := service.NewQA(
		planner.New(llm, log),
		embedder,
		retriever.NewService(index, docs, log),
		answer.NewSynthesizer(llm, log),
		cache.NewAnswers(rdb, cfg.Cache.TTL(), log),
		log,
	)
	gate := ratelimit.NewGate(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window(), log)

	pingers := map[string]server.Pinger{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	srv := server.New(ingestSvc, qa, gate, docs, tracker, pingers, log)

	err = srv.Run(ctx, cfg.Server.Addr())
	drainDone := make(chan struct{})
	go func() {
		runner.Wait()
		close(drainDone)
	}()
	select {
	case <-drainDone:
	case <-time.After(30 * time.Second):
		log.Warn("shutdown before background jobs drained")
	}
	return err
}
