// Package cache provides the key-value cache abstraction used by the
// region, tenant and key-set resolvers. The cache is an optimization, never
// a source of truth: callers fall through to the authoritative store when a
// read fails, and entries are whole-value overwrites.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hazyna.org/internal/obs"
)

// ErrMiss reports that a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is the minimal contract resolvers need. Pattern deletion uses
// path.Match-style wildcards ("region:top:*").
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Memoize runs load through the cache under key with the given TTL.
// A nil cache and any cache failure both degrade to calling load directly;
// loader errors are returned as-is and never cached.
func Memoize[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if c != nil {
		raw, err := c.Get(ctx, key)
		switch {
		case err == nil:
			var v T
			if jsonErr := json.Unmarshal(raw, &v); jsonErr == nil {
				return v, nil
			}
			// Corrupt entry: drop it and reload.
			_ = c.Delete(ctx, key)
		case !errors.Is(err, ErrMiss):
			obs.Log("warn", "cache read failed", map[string]any{"key": key, "error": err.Error()})
		}
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}
	if c != nil {
		if raw, jsonErr := json.Marshal(v); jsonErr == nil {
			if err := c.Set(ctx, key, raw, ttl); err != nil {
				obs.Log("warn", "cache write failed", map[string]any{"key": key, "error": err.Error()})
			}
		}
	}
	return v, nil
}
