// Package cache holds short-lived serialized API responses.
package cache

import (
	"context"
	"time"
)

// BytesCache stores raw response bytes with a TTL. A miss is (nil, false, nil).
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
