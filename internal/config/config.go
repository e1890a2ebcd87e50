package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port pair the server binds to.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PostgresConfig contains connection details for the document store.
type PostgresConfig struct {
	DSN    string `yaml:"dsn"`
	DSNEnv string `yaml:"dsn_env"`
}

// Resolve returns the DSN, preferring the environment variable when set.
func (c PostgresConfig) Resolve() string {
	if c.DSNEnv != "" {
		if v := os.Getenv(c.DSNEnv); v != "" {
			return v
		}
	}
	return c.DSN
}

// RedisConfig contains connection details for the cache and rate limiter.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// VectorIndexConfig selects the vector index implementation. Type is
// "qdrant" or "memory"; memory is for local development only.
type VectorIndexConfig struct {
	Type   string       `yaml:"type"`
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig contains connection details for the vector index.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

// OpenAIConfig configures the LLM and embedding clients.
type OpenAIConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
}

// APIKey reads the key from the configured environment variable.
func (c OpenAIConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	TargetTokens  int `yaml:"target_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

// RateLimitConfig configures the per-client request gate.
type RateLimitConfig struct {
	Requests   int `yaml:"requests"`
	WindowSecs int `yaml:"window_secs"`
}

// Window returns the rate limit window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSecs) * time.Second
}

// CacheConfig configures the answer cache.
type CacheConfig struct {
	TTLSecs int `yaml:"ttl_secs"`
}

// TTL returns the cache entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// IngestConfig configures background document processing.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Redis       RedisConfig       `yaml:"redis"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache"`
	Ingest      IngestConfig      `yaml:"ingest"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Postgres.DSNEnv == "" {
		cfg.Postgres.DSNEnv = "DATABASE_URL"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.VectorIndex.Type == "" {
		cfg.VectorIndex.Type = "qdrant"
	}
	if cfg.VectorIndex.Qdrant.URL == "" {
		cfg.VectorIndex.Qdrant.URL = "http://localhost:6333"
	}
	if cfg.VectorIndex.Qdrant.Collection == "" {
		cfg.VectorIndex.Qdrant.Collection = "embeddings"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.Dimension == 0 {
		cfg.OpenAI.Dimension = 1536
	}
	if cfg.OpenAI.BatchSize == 0 {
		cfg.OpenAI.BatchSize = 32
	}
	if cfg.Chunker.TargetTokens == 0 {
		cfg.Chunker.TargetTokens = 900
	}
	if cfg.Chunker.OverlapTokens == 0 {
		cfg.Chunker.OverlapTokens = 150
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 10
	}
	if cfg.RateLimit.WindowSecs == 0 {
		cfg.RateLimit.WindowSecs = 300
	}
	if cfg.Cache.TTLSecs == 0 {
		cfg.Cache.TTLSecs = 3600
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
}
