// Package ratelimit enforces fixed-window limits on credential issuance
// (OTP challenges and magic links) using Redis counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veo-auth-service/internal/observability"
)

var (
	// ErrRateLimited is returned when the identifier or IP exceeded its window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("rate limiter unavailable")
)

// Config holds rate limiter tuning parameters.
type Config struct {
	// Max is the allowed number of issuance requests per identifier (and per IP) per window.
	Max int
	// Window is the fixed-window duration.
	Window time.Duration
}

// Limiter enforces per-identifier and per-IP issuance limits using Redis counters.
// A nil Limiter allows everything, so callers can wire it unconditionally.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, config: cfg}
}

// Allow records one issuance request for the identifier+IP pair and reports
// whether it is within budget. Counting happens on every call (the request
// itself is the limited resource, not its failure).
func (l *Limiter) Allow(ctx context.Context, kind, identifier, ip string) error {
	if l == nil {
		return nil
	}
	err := l.enforceFixedWindow(ctx, issuanceKey(kind, "id", identifier))
	if err == nil && ip != "" {
		err = l.enforceFixedWindow(ctx, issuanceKey(kind, "ip", ip))
	}
	if errors.Is(err, ErrRateLimited) {
		observability.RateLimitRejectedTotal.WithLabelValues(kind).Inc()
	}
	return err
}

func (l *Limiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(l.config.Max) {
		return ErrRateLimited
	}
	return nil
}

func issuanceKey(kind, dim, value string) string {
	return "issue:" + kind + ":" + dim + ":" + value
}
