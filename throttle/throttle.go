// Package throttle counts events in fixed Redis windows.
package throttle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "forumgw:throttle:"

type Limiter struct {
	rdb redis.Cmdable
}

func NewLimiter(rdb redis.Cmdable) *Limiter {
	return &Limiter{rdb: rdb}
}

// Hit counts one event for key and reports whether the count is still within
// limit for the current window.
func (l *Limiter) Hit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	key = keyPrefix + key

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment %q: %w", key, err)
	}

	if count == 1 {
		err = l.rdb.Expire(ctx, key, window).Err()
		if err != nil {
			return false, fmt.Errorf("failed to set expiry of %q: %w", key, err)
		}
	}

	return count <= limit, nil
}

const (
	DefaultSpamRepeats = 3
	DefaultSpamWindow  = 5 * time.Minute
)

// SpamGuard rejects a user posting the same content more than maxRepeats
// times within window.
type SpamGuard struct {
	limiter    *Limiter
	maxRepeats int64
	window     time.Duration
}

func NewSpamGuard(limiter *Limiter, maxRepeats int64, window time.Duration) *SpamGuard {
	return &SpamGuard{
		limiter:    limiter,
		maxRepeats: maxRepeats,
		window:     window,
	}
}

func (g *SpamGuard) Allow(ctx context.Context, userID int64, content string) (bool, error) {
	sum := sha256.Sum256([]byte(content))
	key := "spam:" + strconv.FormatInt(userID, 10) + ":" + hex.EncodeToString(sum[:16])

	return g.limiter.Hit(ctx, key, g.maxRepeats, g.window)
}
