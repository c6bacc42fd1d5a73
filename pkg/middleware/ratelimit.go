package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
}

// DefaultRateLimitConfig returns the webhook endpoint's default limits.
// Generous: legitimate duplicate deliveries must never be dropped.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 120,
		WindowDuration:    time.Minute,
	}
}

// Limiter is a rate limiter keyed by client
type Limiter interface {
	// Allow reports whether the request is within the limit. The error is
	// advisory; callers decide whether to fail open.
	Allow(r *http.Request, key string) (bool, error)
}

// LocalRateLimiter is an in-process fixed-window limiter for single-instance
// deployments without Redis.
type LocalRateLimiter struct {
	config  *RateLimitConfig
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count     int
	startedAt time.Time
}

// NewLocalRateLimiter creates an in-memory limiter
func NewLocalRateLimiter(config *RateLimitConfig) *LocalRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &LocalRateLimiter{
		config:  config,
		windows: make(map[string]*window),
	}
}

// Allow checks and consumes one request for the key
func (rl *LocalRateLimiter) Allow(_ *http.Request, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.startedAt) >= rl.config.WindowDuration {
		rl.windows[key] = &window{count: 1, startedAt: now}
		return true, nil
	}

	w.count++
	return w.count <= rl.config.RequestsPerWindow, nil
}

// Cleanup drops windows that have fully elapsed
func (rl *LocalRateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, w := range rl.windows {
		if now.Sub(w.startedAt) >= rl.config.WindowDuration*2 {
			delete(rl.windows, key)
		}
	}
}

// RateLimit wraps a handler with per-client-IP rate limiting. Limiter errors
// fail open.
func RateLimit(limiter Limiter, config *RateLimitConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)

			allowed, err := limiter.Allow(r, key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				retryAfter := config.WindowDuration.Seconds()
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.RequestsPerWindow))
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate limit exceeded","retry_after":%.0f}`, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
