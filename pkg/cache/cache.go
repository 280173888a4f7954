package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
	// ErrCacheFull is returned by bounded backends instead of evicting live state.
	ErrCacheFull = errors.New("cache: capacity reached")
)

// Service is the key-value contract shared by the Redis and in-memory backends.
// Values are JSON encoded on Set and decoded into dest on Get; strings and
// byte slices pass through unchanged.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// Keys lists live keys matching a glob pattern such as "model:*".
	Keys(ctx context.Context, pattern string) ([]string, error)
	// TryLock takes key for ttl; false means another owner holds it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock releases key only if this instance holds it.
	Unlock(ctx context.Context, key string) error
	Close() error
}

// GetTyped is a generic convenience wrapper over Service.Get.
func GetTyped[T any](ctx context.Context, c Service, key string) (T, error) {
	var out T
	err := c.Get(ctx, key, &out)
	return out, err
}

// Key joins non-empty parts with ':'.
func Key(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}

// PrefixPattern matches every key under prefix.
func PrefixPattern(prefix string) string {
	return Key(prefix, "*")
}
