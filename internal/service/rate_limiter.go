package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chatterbox-app/auth-service/pkg/database"
)

// RateLimiter throttles credential-guessing endpoints using a fixed-window
// counter in Redis.
type RateLimiter struct {
	redis *database.Redis
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow reports whether another request under key fits in the current
// window. The first request of a window starts its expiry clock.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := r.redis.Client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count requests: %w", err)
	}

	if count == 1 {
		if err := r.redis.Client.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set window expiry: %w", err)
		}
	}

	return count <= int64(limit), nil
}

// Remaining returns how many requests are left in the current window.
func (r *RateLimiter) Remaining(ctx context.Context, key string, limit int) (int, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := r.redis.Client.Get(ctx, redisKey).Int64()
	if err != nil {
		// A missing key means an untouched window.
		return limit, nil
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
