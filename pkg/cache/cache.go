// Package cache provides the TTL caches used in front of storage and the
// payment gateway. Entries are served only while younger than their TTL;
// expired entries are evicted on read and never returned.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get returns the cached value and true while the entry is within its
	// TTL. Expired or missing entries report false.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set overwrites the entry unconditionally.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	Delete(ctx context.Context, key string)
}
