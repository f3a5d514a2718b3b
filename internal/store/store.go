// Package store defines the atomic key-value store the bot keeps all of its
// shared state in: cursor, dedupe markers, rate counters, cooldown locks, the
// write-resume timestamp and cached token lookups.
package store

import (
	"context"
	"time"
)

// Store is an atomic key-value store. Implementations must make Incr and SetNX
// single atomic operations.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// Incr increments the integer at key, creating it at 1. An existing TTL is kept.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// SetNX writes value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

type prefixed struct {
	inner  Store
	prefix string
}

// WithPrefix namespaces every key of s as "prefix:key".
// An empty prefix returns s unchanged.
func WithPrefix(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixed{inner: s, prefix: prefix}
}

func (p *prefixed) key(k string) string { return p.prefix + ":" + k }

func (p *prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, p.key(key))
}

func (p *prefixed) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return p.inner.Set(ctx, p.key(key), value, ttl)
}

func (p *prefixed) Del(ctx context.Context, key string) error { return p.inner.Del(ctx, p.key(key)) }

func (p *prefixed) Incr(ctx context.Context, key string) (int64, error) {
	return p.inner.Incr(ctx, p.key(key))
}

func (p *prefixed) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return p.inner.Expire(ctx, p.key(key), ttl)
}

func (p *prefixed) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return p.inner.SetNX(ctx, p.key(key), value, ttl)
}

func (p *prefixed) Ping(ctx context.Context) error { return p.inner.Ping(ctx) }
func (p *prefixed) Close() error                   { return p.inner.Close() }
