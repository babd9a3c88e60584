package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"linkshelf/internal/observability"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by GetJSON when the key is absent or the cache is disabled.
var ErrMiss = errors.New("cache miss")

// GetJSON decodes the value at key into dst.
func GetJSON(ctx context.Context, key string, dst any) error {
	if client == nil {
		return ErrMiss
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// SetJSON stores v at key with ttl. A disabled cache is a no-op.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

// Aside returns the cached value for key, or calls load and caches its result.
// Cache failures never fail the call; load errors are returned untouched and nothing is cached.
func Aside[T any](ctx context.Context, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	family := keyFamily(key)

	var cached T
	err := GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		observability.CacheLookups.WithLabelValues(family, "hit").Inc()
		return cached, nil
	case errors.Is(err, ErrMiss):
		observability.CacheLookups.WithLabelValues(family, "miss").Inc()
	default:
		observability.CacheLookups.WithLabelValues(family, "error").Inc()
		log.Printf("cache read %s: %v", key, err)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := SetJSON(ctx, key, v, ttl); err != nil {
		log.Printf("cache write %s: %v", key, err)
	}
	return v, nil
}

func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
