// Package ratelimit implements a sliding-window request limiter backed
// by Redis sorted sets, used to throttle the login and OTP endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/youthloop/webgate/pkg/database"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter enforces a fixed limit of requests per sliding window, keyed
// by an arbitrary string (typically the client IP).
type Limiter struct {
	redis  *database.Redis
	limit  int
	window time.Duration
}

// New creates a limiter.
func New(redis *database.Redis, limit int, window time.Duration) *Limiter {
	return &Limiter{redis: redis, limit: limit, window: window}
}

func (l *Limiter) key(key string) string {
	return database.Key("ratelimit", key)
}

// Allow records the request and reports whether it fits in the window.
// Redis failures allow the request; availability wins over strictness
// for a login throttle.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	redisKey := l.key(key)
	windowStart := now.Add(-l.window)

	pipe := l.redis.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Allowed: true, Remaining: l.limit}, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := int(countCmd.Val())
	if count >= l.limit {
		retry := l.window
		oldest, err := l.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestAt := time.Unix(0, int64(oldest[0].Score))
			retry = l.window - now.Sub(oldestAt)
			if retry < 0 {
				retry = 0
			}
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retry.Round(time.Second)}, nil
	}

	err := l.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	}).Err()
	if err != nil {
		return Result{Allowed: true, Remaining: l.limit - count}, fmt.Errorf("rate limit record failed: %w", err)
	}

	// Expiry keeps abandoned keys from accumulating.
	_ = l.redis.Client.Expire(ctx, redisKey, l.window+time.Minute).Err()

	remaining := l.limit - count - 1
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining}, nil
}

// Limit returns the configured per-window limit.
func (l *Limiter) Limit() int {
	return l.limit
}
