package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"docchat/internal/domain"
	"docchat/internal/logger"
)

// DefaultTTL is how long a synthesized answer stays servable before it
// is recomputed.
const DefaultTTL = time.Hour

var whitespace = regexp.MustCompile(`\s+`)

var punctuation = strings.NewReplacer("?", "", ".", "", ",", "", `"`, "", "'", "")

// NormalizeQuestion canonicalizes a question for caching: lowercase,
// collapsed whitespace, and a fixed punctuation set removed, so
// equivalent-but-differently-punctuated questions share a cache entry.
func NormalizeQuestion(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	normalized = whitespace.ReplaceAllString(normalized, " ")
	normalized = punctuation.Replace(normalized)
	return strings.TrimSpace(normalized)
}

// Key hashes the normalized question into the cache key.
func Key(question string) string {
	sum := md5.Sum([]byte(NormalizeQuestion(question)))
	return "answer:" + hex.EncodeToString(sum[:])
}

// Client is the minimal redis surface the answer cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Answers serves previously synthesized answers from redis. Store
// failures never block a request: a failed read is a miss, a failed
// write is skipped with a warning.
type Answers struct {
	client Client
	ttl    time.Duration
	log    logger.Logger
}

func NewAnswers(client Client, ttl time.Duration, log logger.Logger) *Answers {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Answers{client: client, ttl: ttl, log: log}
}

func (a *Answers) Get(ctx context.Context, question string) (*domain.CachedAnswer, bool) {
	key := Key(question)
	data, err := a.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			a.log.Warn("answer cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}
	var cached domain.CachedAnswer
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		a.log.Warn("answer cache entry is malformed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return &cached, true
}

func (a *Answers) Set(ctx context.Context, question string, answer *domain.CachedAnswer) {
	key := Key(question)
	data, err := json.Marshal(answer)
	if err != nil {
		a.log.Warn("answer cache marshal failed, skipping write", "key", key, "error", err)
		return
	}
	if err := a.client.Set(ctx, key, data, a.ttl).Err(); err != nil {
		a.log.Warn("answer cache write failed, skipping", "key", key, "error", err)
	}
}
