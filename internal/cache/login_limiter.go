package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter is a fixed-window counter of login attempts per email.
type LoginLimiter struct {
	client      redis.Cmdable
	maxAttempts int64
	window      time.Duration
}

func NewLoginLimiter(client redis.Cmdable, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

func loginKey(email string) string {
	return fmt.Sprintf("login_attempts:%s", strings.ToLower(strings.TrimSpace(email)))
}

// Allow records an attempt and reports whether it is within the window budget.
func (l *LoginLimiter) Allow(ctx context.Context, email string) (bool, error) {
	key := loginKey(email)

	attempts, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	// The first attempt opens the window.
	if attempts == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}

	return attempts <= l.maxAttempts, nil
}

// Reset clears the attempts after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.client.Del(ctx, loginKey(email)).Err()
}
