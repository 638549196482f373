// Package ratelimit caps repeat submissions per respondent origin (redis fixed window and a noop mode).
package ratelimit

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evercare/livepoll/internal/domain"
)

// RedisRateLimiter counts submissions per poll/IP/UA in fixed windows backed by Redis.
type RedisRateLimiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: prefix,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, sub domain.Submission) error {
	if r.client == nil || r.limit <= 0 || r.window <= 0 {
		// Invalid configuration falls back to permissive mode.
		return nil
	}

	key := r.buildKey(sub)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("ratelimit: increment key: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return fmt.Errorf("ratelimit: set expiry: %w", err)
		}
	}

	if int(count) > r.limit {
		return domain.ErrRateLimited
	}

	return nil
}

func (r *RedisRateLimiter) buildKey(sub domain.Submission) string {
	// SHA-1 keeps IP/UA out of Redis keys while staying stable per origin.
	base := fmt.Sprintf("%s|%s|%s", sub.PollCode, sub.OriginIP, sub.UserAgent)
	hash := sha1.Sum([]byte(base))
	return fmt.Sprintf("%s:%s", r.keyPrefix, hex.EncodeToString(hash[:]))
}

var _ domain.RateLimiter = (*RedisRateLimiter)(nil)
