package rediskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is a store.Store backed by Redis.
type KV struct{ c *redis.Client }

// Open parses a redis:// URL and connects lazily.
func Open(url string) (*KV, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(opts)), nil
}

// New wraps an existing client.
func New(c *redis.Client) *KV { return &KV{c: c} }

// Close closes the Redis client
func (r *KV) Close() error { return r.c.Close() }

func (r *KV) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *KV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *KV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *KV) Del(ctx context.Context, key string) error { return r.c.Del(ctx, key).Err() }

func (r *KV) Incr(ctx context.Context, key string) (int64, error) { return r.c.Incr(ctx, key).Result() }

func (r *KV) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.c.Expire(ctx, key, ttl).Err()
}

func (r *KV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.c.SetNX(ctx, key, value, ttl).Result()
}
