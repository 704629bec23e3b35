package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultLockDuration = 10 * time.Second

// CheckoutGuard blocks a second checkout for the same user and category
// while the first one is still opening its payment session.
type CheckoutGuard struct {
	Client   *redis.Client
	Duration time.Duration
}

func NewCheckoutGuard(client *redis.Client, duration time.Duration) *CheckoutGuard {
	if duration <= 0 {
		duration = defaultLockDuration
	}
	return &CheckoutGuard{Client: client, Duration: duration}
}

func lockKey(userID, categoryID string) string {
	return fmt.Sprintf("checkout_lock:%s:%s", userID, categoryID)
}

// Acquire takes the lock for userID and categoryID, tagged with token.
func (g *CheckoutGuard) Acquire(ctx context.Context, userID, categoryID, token string) (bool, error) {
	return g.Client.SetNX(ctx, lockKey(userID, categoryID), token, g.Duration).Result()
}

// Release drops the lock if it is still held by token.
func (g *CheckoutGuard) Release(ctx context.Context, userID, categoryID, token string) error {
	key := lockKey(userID, categoryID)
	val, err := g.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already expired
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := g.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
