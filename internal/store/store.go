// internal/store/store.go
package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a store whose Close has completed.
var ErrClosed = errors.New("store: closed")

// Store is the shared key-value store every game worker coordinates through.
// Implementations must make TryAcquire atomic: it is the only serialization
// point between concurrent transition attempts, so "set if absent" and the TTL
// must be applied as one operation.
type Store interface {
	// Get returns the value for key, or ("", false, nil) if the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value under key with the given TTL. A zero TTL persists
	// the key without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del removes the given keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int, error)

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// TryAcquire atomically sets key if it is absent, with the given TTL.
	// It returns true iff this caller created the key. Locks are never
	// explicitly released; TTL expiry is the recovery path for crashed
	// holders.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// ScanKeys returns every key matching the glob-style pattern.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// Close releases the underlying client. The store is unusable afterwards.
	Close() error
}
