package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrMiss = errors.New("cache miss")

const scanBatch = 200

// KV the small key-value surface the heat-map cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisKV KV over a go-redis client. Get returns ErrMiss for absent keys.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV { return &RedisKV{client: client} }

var _ KV = (*RedisKV)(nil)

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// ScanKeys iterates SCAN until the cursor wraps.
func (r *RedisKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan %q: %w", pattern, err)
		}
		keys = append(keys, batch...)
		if cursor = next; cursor == 0 {
			return keys, nil
		}
	}
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// DeleteMatching removes every key matching pattern and returns how many were found.
func DeleteMatching(ctx context.Context, kv KV, pattern string) (int, error) {
	keys, err := kv.ScanKeys(ctx, pattern)
	if err != nil {
		return 0, err
	}
	if err := kv.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("failed to delete %d keys: %w", len(keys), err)
	}
	return len(keys), nil
}

// HeatMapKey cache key of one heat-map view.
func HeatMapKey(laboratoryID int64, date, scope string) string {
	return fmt.Sprintf("audit:heatmap:%d:%s:%s", laboratoryID, date, scope)
}

// HeatMapPattern matches every cached heat-map of a laboratory.
func HeatMapPattern(laboratoryID int64) string {
	return fmt.Sprintf("audit:heatmap:%d:*", laboratoryID)
}
