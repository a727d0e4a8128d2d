// Package cache provides the TTL key-value stores the ranking pipeline keeps
// its computed results in. Values are serialized as JSON.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: key not found")

// Store is a TTL key-value store.
type Store interface {
	// Get deserializes the value at key into dest, or returns ErrMiss.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores value at key for ttl.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Close() error
}
