package schemac

import (
	"context"
	"strings"
)

// Cache is the interface for caching rendered type definitions.
// The compiler/cache package provides an in-memory LRU with an optional
// on-disk tier; callers may plug in any other store.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies one rendered type.
type CacheKey struct {
	Language    string
	Type        string
	Fingerprint string
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return strings.Join([]string{k.Language, k.Type, k.Fingerprint}, ":")
}
