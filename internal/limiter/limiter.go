// Package limiter throttles login attempts per identifier using a fixed
// redis window.
package limiter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTooManyAttempts is returned when an identifier has exceeded the allowed
// number of login attempts within the window.
var ErrTooManyAttempts = errors.New("too many login attempts")

// LoginLimiter gates login attempts. Allow returns ErrTooManyAttempts when
// the identifier is over its budget.
type LoginLimiter interface {
	Allow(ctx context.Context, identifier string) error
}

// RedisLimiter counts attempts in redis with INCR and an expiry set on the
// first hit of each window. Redis outages fail open: a broken limiter must
// not lock everyone out.
type RedisLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
	logger      *slog.Logger
}

// NewRedisLimiter returns a limiter allowing maxAttempts per window.
func NewRedisLimiter(client *redis.Client, maxAttempts int, window time.Duration, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
		logger:      logger,
	}
}

func loginKey(identifier string) string {
	return "login_attempts:" + identifier
}

// Allow records one attempt for the identifier and rejects it when the
// window budget is exhausted.
func (l *RedisLimiter) Allow(ctx context.Context, identifier string) error {
	key := loginKey(identifier)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("login limiter unavailable, failing open", "error", err)
		return nil
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("login limiter expire failed", "key", key, "error", err)
		}
	}

	if count > l.maxAttempts {
		return ErrTooManyAttempts
	}

	return nil
}

// Noop is a LoginLimiter that admits every attempt. Used when redis is not
// configured.
type Noop struct{}

// Allow always succeeds.
func (Noop) Allow(context.Context, string) error { return nil }
