// Package ratelimit counts requests per subject over a fixed window. The
// shared counter store is redis; a process-local limiter covers deployments
// without one.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a subject exhausts its window allowance.
var ErrRateLimited = errors.New("rate limit exceeded")

// Decision is the outcome of one counted request.
type Decision struct {
	Allowed   bool
	Limit     int
	Count     int
	Remaining int
	ResetIn   time.Duration
}

// Limiter atomically increments the subject's counter for the current window
// and compares it against the limit.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) Decision
}

// InMemoryLimiter is a fixed-window limiter local to this process.
type InMemoryLimiter struct {
	mu     sync.Mutex
	window time.Duration
	items  map[string]entry
}

type entry struct {
	count   int
	resetAt time.Time
}

func NewInMemory(window time.Duration) *InMemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &InMemoryLimiter{
		window: window,
		items:  make(map[string]entry),
	}
}

func (l *InMemoryLimiter) Allow(_ context.Context, key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	now := time.Now().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanup(now)
	curr, ok := l.items[key]
	if !ok || now.After(curr.resetAt) {
		curr = entry{resetAt: now.Add(l.window)}
	}
	curr.count++
	l.items[key] = curr
	remaining := limit - curr.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   curr.count <= limit,
		Limit:     limit,
		Count:     curr.count,
		Remaining: remaining,
		ResetIn:   curr.resetAt.Sub(now),
	}
}

func (l *InMemoryLimiter) cleanup(now time.Time) {
	if len(l.items) < 4096 {
		return
	}
	for key, curr := range l.items {
		if now.After(curr.resetAt) {
			delete(l.items, key)
		}
	}
}
