// Package cache defines the byte-level store contract behind the plan cache.
// Backends only need get/set with TTL and delete; staleness is enforced by
// the backend's TTL, and eviction beyond that is the backend's policy.
package cache

import (
	"context"
	"time"
)

type Interface interface {
	// Get returns (nil, false, nil) on a miss, including TTL expiry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
