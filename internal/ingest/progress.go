package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docchat/internal/domain"
	"docchat/internal/logger"
)

// progressTTL keeps finished job records around long enough for callers
// to poll the terminal state.
const progressTTL = 24 * time.Hour

// RedisTracker records coarse per-document job progress under
// job:<document id>. Write failures are logged and dropped: progress is
// advisory, the document status row is the source of truth.
type RedisTracker struct {
	client redis.UniversalClient
	log    logger.Logger
}

func NewRedisTracker(client redis.UniversalClient, log logger.Logger) *RedisTracker {
	return &RedisTracker{client: client, log: log}
}

func jobKey(documentID int64) string {
	return fmt.Sprintf("job:%d", documentID)
}

func (t *RedisTracker) Update(ctx context.Context, documentID int64, progress domain.JobProgress) {
	data, err := json.Marshal(progress)
	if err != nil {
		t.log.Warn("job progress marshal failed", "document_id", documentID, "error", err)
		return
	}
	if err := t.client.Set(ctx, jobKey(documentID), data, progressTTL).Err(); err != nil {
		t.log.Warn("job progress write failed", "document_id", documentID, "error", err)
	}
}

func (t *RedisTracker) Get(ctx context.Context, documentID int64) (*domain.JobProgress, bool) {
	data, err := t.client.Get(ctx, jobKey(documentID)).Result()
	if err != nil {
		if err != redis.Nil {
			t.log.Warn("job progress read failed", "document_id", documentID, "error", err)
		}
		return nil, false
	}
	var progress domain.JobProgress
	if err := json.Unmarshal([]byte(data), &progress); err != nil {
		t.log.Warn("job progress entry is malformed", "document_id", documentID, "error", err)
		return nil, false
	}
	return &progress, true
}
