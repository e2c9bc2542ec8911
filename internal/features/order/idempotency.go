package order

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "idem:order:"

// IdempotencyGuard remembers submitted Idempotency-Key values so a retried
// checkout is not placed twice. A guard without a client accepts every key.
type IdempotencyGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyGuard(client *redis.Client, ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{
		client: client,
		ttl:    ttl,
	}
}

// claim reserves key. It returns false when the key was already claimed.
func (g *IdempotencyGuard) claim(ctx context.Context, key string) (bool, error) {
	if g == nil || g.client == nil {
		return true, nil
	}

	ok, err := g.client.SetNX(ctx, idempotencyPrefix+key, "pending", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return ok, nil
}

// complete records the order placed under key.
func (g *IdempotencyGuard) complete(ctx context.Context, key string, orderID int64) error {
	if g == nil || g.client == nil {
		return nil
	}

	return g.client.Set(ctx, idempotencyPrefix+key, strconv.FormatInt(orderID, 10), g.ttl).Err()
}

// release frees key after a failed placement so the client can retry.
func (g *IdempotencyGuard) release(ctx context.Context, key string) error {
	if g == nil || g.client == nil {
		return nil
	}

	return g.client.Del(ctx, idempotencyPrefix+key).Err()
}
