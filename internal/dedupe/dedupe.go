// Package dedupe guards against duplicate event deliveries.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shipstream/internal/config"
)

// Guard reports whether an event key has been seen recently. FirstSeen
// returns true exactly once per key within the TTL window.
type Guard interface {
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Close() error
}

type redisGuard struct {
	client *redis.Client
}

// NewRedis builds a Guard backed by Redis SET NX.
func NewRedis(ctx context.Context, c config.RedisConfig) (Guard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", c.Addr, err)
	}

	return &redisGuard{client: client}, nil
}

func (g *redisGuard) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, "dedupe:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedupe key %s: %w", key, err)
	}
	return ok, nil
}

func (g *redisGuard) Close() error {
	return g.client.Close()
}

type noopGuard struct{}

// NewNoop returns a Guard that treats every event as new. Used when no
// Redis address is configured.
func NewNoop() Guard {
	return noopGuard{}
}

func (noopGuard) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (noopGuard) Close() error { return nil }
