package limiter

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestLoginKey(t *testing.T) {
	assert.Equal(t, "login_attempts:neo@x.com", loginKey("neo@x.com"))
}

func TestNoopAlwaysAllows(t *testing.T) {
	var l Noop
	for i := 0; i < 100; i++ {
		assert.NoError(t, l.Allow(context.Background(), "anyone"))
	}
}

func TestRedisLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1", // nothing listens here
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := NewRedisLimiter(client, 5, time.Minute, logger)

	err := l.Allow(context.Background(), "neo@x.com")
	assert.NoError(t, err, "redis outage must not block logins")
}
