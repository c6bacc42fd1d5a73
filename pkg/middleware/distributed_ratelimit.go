package middleware

import (
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
)

// DistributedRateLimiter implements rate limiting using Redis so the limit
// holds across all instances.
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
	logger *observability.Logger
}

// NewDistributedRateLimiter creates a Redis-backed fixed-window limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string, logger *observability.Logger) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
		logger: logger,
	}
}

// Allow checks and consumes one request for the key. A Redis failure allows
// the request and returns the error so the caller can fail open knowingly.
func (rl *DistributedRateLimiter) Allow(r *http.Request, key string) (bool, error) {
	ctx := r.Context()
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)

	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.WithError(err).Warn("rate limiter redis unavailable, failing open")
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow), nil
}

// Reset clears the limit for a key
func (rl *DistributedRateLimiter) Reset(r *http.Request, key string) error {
	return rl.redis.Del(r.Context(), fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}
