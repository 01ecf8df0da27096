// Package memory holds process-local fallbacks for the Redis adapters, used
// when redis.enabled is false.
package memory

import (
	"context"
	"math"
	"sync"
	"time"

	"token-ledger/internal/core/ports"

	"golang.org/x/time/rate"
)

// RateLimitStore implements ports.RateLimitStore with one token bucket per
// key. A bucket refills limit tokens per window and holds at most limit.
type RateLimitStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

// NewRateLimitStore creates an empty in-process store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow takes one token from the bucket for key.
func (s *RateLimitStore) Allow(_ context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	b, ok := s.buckets[key]
	if !ok {
		every := window / time.Duration(max(limit, 1))
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(every), int(limit)),
			window:  window,
		}
		s.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	remaining := int64(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	// Time until the bucket holds a whole token again.
	wait := time.Duration(0)
	if tokens < 1 {
		wait = time.Duration((1 - tokens) / float64(b.limiter.Limit()) * float64(time.Second))
	}

	return &ports.RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(wait).Unix() + 1,
	}, nil
}

// sweep drops buckets idle for longer than their window, at most once a minute.
func (s *RateLimitStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < time.Minute {
		return
	}
	s.lastSweep = now
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > b.window {
			delete(s.buckets, key)
		}
	}
}
