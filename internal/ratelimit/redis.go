package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter is a fixed-window limiter over a shared redis counter store.
// When redis is unreachable it defers to the in-process fallback rather than
// rejecting traffic.
type RedisLimiter struct {
	client   *redis.Client
	window   time.Duration
	prefix   string
	fallback *InMemoryLimiter
}

func NewRedis(client *redis.Client, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client:   client,
		window:   window,
		prefix:   "rl:",
		fallback: NewInMemory(window),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	result, err := rateLimitScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Slice()
	if err != nil || len(result) < 2 {
		return l.fallback.Allow(ctx, key, limit)
	}
	count, okCount := toInt(result[0])
	ttlMS, okTTL := toInt(result[1])
	if !okCount || !okTTL {
		return l.fallback.Allow(ctx, key, limit)
	}
	resetIn := time.Duration(ttlMS) * time.Millisecond
	if resetIn <= 0 {
		resetIn = l.window
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   int(count) <= limit,
		Limit:     limit,
		Count:     int(count),
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
