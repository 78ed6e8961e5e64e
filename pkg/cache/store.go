package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrNilStore is returned by New when no store is supplied
	ErrNilStore = errors.New("cache store cannot be nil")
)

// Store persists entries addressed by fingerprint.
//
// Implementations must be safe for concurrent use. Get returns ErrCacheMiss
// for absent, expired or undecodable entries. Set is a no-op for an empty key
// or a non-positive ttl. Remove is a no-op for an absent key.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}
