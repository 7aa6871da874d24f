// Package cache provides byte caches for downloaded images and rendered
// posters.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: JSON entries under a local directory (CLI default)
//   - [RedisCache]: a shared Redis instance (server deployments)
//   - [NullCache]: stores nothing (caching disabled)
//
// Keys come from a [Keyer] so every backend uses the same key layout.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional time-to-live.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default lifetimes for cached values.
const (
	TTLDownload = 7 * 24 * time.Hour
	TTLPoster   = 24 * time.Hour
)
