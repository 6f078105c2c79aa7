// Package idempotency provides a fast-path duplicate-delivery guard in
// front of the storage-level unique constraint.
package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Guard answers whether an idempotency key has been seen recently. It is
// advisory only: a negative answer lets the caller proceed to the database,
// where the unique constraint remains the source of truth.
type Guard interface {
	// FirstDelivery marks the key and reports whether this is its first
	// delivery within the retention window.
	FirstDelivery(ctx context.Context, key string) (bool, error)
}

// RedisGuard implements Guard with SET NX over a shared Redis instance, so
// the fast path holds across engine replicas.
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisGuard creates a guard against the given Redis URL.
func NewRedisGuard(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisGuard, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return &RedisGuard{
		client: redis.NewClient(options),
		ttl:    ttl,
		logger: logger.With("module", "idempotency_guard"),
	}, nil
}

func (g *RedisGuard) FirstDelivery(ctx context.Context, key string) (bool, error) {
	first, err := g.client.SetNX(ctx, "journeyd:idem:"+key, 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark idempotency key: %w", err)
	}

	return first, nil
}

// Close releases the underlying Redis connection.
func (g *RedisGuard) Close() error {
	return g.client.Close()
}

// NoopGuard reports every delivery as the first, delegating duplicate
// suppression entirely to the storage layer.
type NoopGuard struct{}

func (NoopGuard) FirstDelivery(ctx context.Context, key string) (bool, error) {
	return true, nil
}
