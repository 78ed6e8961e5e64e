package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/response-cache/pkg/cache"
)

// ErrWriteNotAcknowledged indicates the backend did not confirm a write
var ErrWriteNotAcknowledged = errors.New("cache write not acknowledged")

// Redis stores JSON-encoded entries and relies on Redis key expiry for TTL.
type Redis struct {
	client redis.UniversalClient
	prefix string
	logger zerolog.Logger
}

// NewRedis creates a Redis-backed store. The store owns client and closes it
// in Close.
func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	if client == nil {
		panic("redis client cannot be nil")
	}
	o := newOptions(backendRedis, opts)
	return &Redis{
		client: client,
		prefix: o.prefix,
		logger: o.logger,
	}
}

// Get retrieves an entry. Missing and undecodable entries are reported as
// cache.ErrCacheMiss; the latter are logged.
func (s *Redis) Get(ctx context.Context, key string) (*cache.Entry, error) {
	if key == "" {
		return nil, cache.ErrCacheMiss
	}

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observe(backendRedis, "get", "miss")
			return nil, cache.ErrCacheMiss
		}
		observe(backendRedis, "get", "error")
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		observe(backendRedis, "get", "error")
		s.logger.Warn().Err(err).Str("key", key).Msg("Discarding malformed cache entry")
		return nil, cache.ErrCacheMiss
	}

	observe(backendRedis, "get", "hit")
	return entry, nil
}

// Set stores entry with a Redis-native TTL. A failed or unacknowledged write
// is returned as an error.
func (s *Redis) Set(ctx context.Context, key string, entry *cache.Entry, ttl time.Duration) error {
	if key == "" || ttl <= 0 {
		observe(backendRedis, "set", "skipped")
		return nil
	}

	data, err := encodeEntry(entry)
	if err != nil {
		observe(backendRedis, "set", "error")
		return err
	}

	reply, err := s.client.Set(ctx, s.prefix+key, data, ttl).Result()
	if err != nil {
		observe(backendRedis, "set", "error")
		return fmt.Errorf("redis set: %w", err)
	}
	if reply != "OK" {
		observe(backendRedis, "set", "error")
		return fmt.Errorf("%w: redis replied %q", ErrWriteNotAcknowledged, reply)
	}

	observe(backendRedis, "set", "ok")
	return nil
}

// Remove deletes key. Deleting an absent key is not an error.
func (s *Redis) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		observe(backendRedis, "remove", "error")
		return fmt.Errorf("redis del: %w", err)
	}
	observe(backendRedis, "remove", "ok")
	return nil
}

// Ping checks connectivity to Redis.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Redis) Close() error {
	return s.client.Close()
}
