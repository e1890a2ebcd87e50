package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"docchat/internal/logger"
)

// checkScript seeds the counter to limit-1 with the window TTL on the
// first request, decrements while positive, and denies at zero. Running
// it as one EVAL makes check-and-decrement indivisible under concurrent
// requests from the same client.
var checkScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = redis.call('GET', key)
if current == false then
    redis.call('SETEX', key, ttl, limit - 1)
    return {limit - 1, 1}
end
local count = tonumber(current)
if count > 0 then
    redis.call('DECR', key)
    return {count - 1, 1}
end
return {0, 0}
`)

// Result reports the gate decision for one request.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Gate enforces a fixed-window per-client request quota backed by redis.
// When redis is unreachable the gate fails open: availability over
// strictness, a broken limiter must not block all traffic.
type Gate struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	log    logger.Logger
}

func NewGate(client redis.UniversalClient, limit int, window time.Duration, log logger.Logger) *Gate {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Gate{client: client, limit: limit, window: window, log: log}
}

// Check consumes one unit of the client's quota and reports whether the
// request may proceed.
func (g *Gate) Check(ctx context.Context, clientID string) Result {
	key := "rate_limit:" + clientID
	values, err := checkScript.Run(ctx, g.client, []string{key}, g.limit, int(g.window.Seconds())).Int64Slice()
	if err != nil || len(values) != 2 {
		g.log.Warn("rate limit store failed, failing open", "client", clientID, "error", err)
		return Result{Allowed: true, Remaining: g.limit - 1}
	}
	result := Result{
		Allowed:   values[1] == 1,
		Remaining: int(values[0]),
	}
	if !result.Allowed {
		if ttl, err := g.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			result.RetryAfter = ttl
		} else {
			result.RetryAfter = g.window
		}
	}
	return result
}
