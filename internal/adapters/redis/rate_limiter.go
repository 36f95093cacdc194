package redis

// Package redis provides Redis-based adapters for the accounts system.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a Redis-backed fixed-window request limiter. Counters live
// under a prefixed key per caller and expire with the window.
type RateLimiter struct {
	client redis.UniversalClient
	prefix string
}

// NewRateLimiter creates a new Redis-based rate limiter.
func NewRateLimiter(client redis.UniversalClient) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: "ratelimit:",
	}
}

// NewRateLimiterWithPrefix creates a Redis rate limiter with a custom key prefix.
func NewRateLimiterWithPrefix(client redis.UniversalClient, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Allow consumes one unit of the key's budget within the fixed window.
// The first hit in a window creates the counter and sets its expiry; both
// commands run in one pipeline round trip.
func (l *RateLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, int, error) {
	if key == "" {
		return false, 0, errors.New("rate limit key cannot be empty")
	}
	if max <= 0 {
		return false, 0, nil
	}
	if window <= 0 {
		window = time.Minute
	}

	redisKey := l.prefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// NX keeps the window anchored at the first hit.
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("redis incr: %w", err)
	}

	count := incr.Val()
	remaining := int(int64(max) - count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(max), remaining, nil
}
