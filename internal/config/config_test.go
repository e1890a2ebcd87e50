package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("ShouldReturnDefaultsWhenFileMissing", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
		assert.Equal(t, 900, cfg.Chunker.TargetTokens)
		assert.Equal(t, 150, cfg.Chunker.OverlapTokens)
		assert.Equal(t, 1536, cfg.OpenAI.Dimension)
		assert.Equal(t, 10, cfg.RateLimit.Requests)
		assert.Equal(t, "qdrant", cfg.VectorIndex.Type)
		assert.Equal(t, "embeddings", cfg.VectorIndex.Qdrant.Collection)
	})

	t.Run("ShouldFillDefaultsForOmittedFields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\nchunker:\n  target_tokens: 400\n"), 0o644))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 400, cfg.Chunker.TargetTokens)
		assert.Equal(t, 150, cfg.Chunker.OverlapTokens)
		assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	})

	t.Run("ShouldRejectMalformedYaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestPostgresResolve(t *testing.T) {
	t.Run("ShouldPreferEnvironmentVariable", func(t *testing.T) {
		t.Setenv("TEST_DB_DSN", "postgres://env/db")
		cfg := PostgresConfig{DSN: "postgres://file/db", DSNEnv: "TEST_DB_DSN"}
		assert.Equal(t, "postgres://env/db", cfg.Resolve())
	})

	t.Run("ShouldFallBackToFileValue", func(t *testing.T) {
		cfg := PostgresConfig{DSN: "postgres://file/db", DSNEnv: "TEST_DB_DSN_UNSET"}
		assert.Equal(t, "postgres://file/db", cfg.Resolve())
	})
}
