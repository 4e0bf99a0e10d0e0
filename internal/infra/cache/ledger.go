// Package cache backs the webhook dedupe ledger with Redis.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "stripe:event:"
	DefaultTTL = 72 * time.Hour
)

type RedisLedger struct {
	db  *redis.Client
	ttl time.Duration
}

// Connect parses a redis:// URL and pings the server before returning.
func Connect(ctx context.Context, url string, ttl time.Duration) (*RedisLedger, error) {
	const op = "cache.Connect"

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	db := redis.NewClient(opts)
	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewRedisLedger(db, ttl), nil
}

func NewRedisLedger(db *redis.Client, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLedger{db: db, ttl: ttl}
}

func (l *RedisLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	const op = "cache.Seen"
	n, err := l.db.Exists(ctx, keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (l *RedisLedger) Mark(ctx context.Context, eventID string) error {
	const op = "cache.Mark"
	if err := l.db.Set(ctx, keyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), l.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (l *RedisLedger) Close() error {
	return l.db.Close()
}
