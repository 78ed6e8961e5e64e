package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/response-cache/pkg/cache"
)

// maxRelativeExpiration is the largest expiration memcached treats as a
// relative number of seconds; larger values are read as Unix timestamps.
const maxRelativeExpiration = 30 * 24 * 60 * 60

// memcacheClient is the subset of *memcache.Client the store uses.
type memcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

// Memcached stores JSON-encoded entries with whole-second expiry.
//
// Memcached keys are limited to 250 bytes without whitespace, so fingerprints
// are hashed before use.
type Memcached struct {
	client memcacheClient
	prefix string
	logger zerolog.Logger
	now    func() time.Time
}

// DialMemcached creates a store talking to the given servers.
func DialMemcached(servers []string, opts ...Option) (*Memcached, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("at least one memcached server is required")
	}
	return NewMemcached(memcache.New(servers...), opts...), nil
}

// NewMemcached creates a store on top of an existing client. The store owns
// client and releases it in Close.
func NewMemcached(client memcacheClient, opts ...Option) *Memcached {
	if client == nil {
		panic("memcached client cannot be nil")
	}
	o := newOptions(backendMemcached, opts)
	return &Memcached{
		client: client,
		prefix: o.prefix,
		logger: o.logger,
		now:    time.Now,
	}
}

func (s *Memcached) itemKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return s.prefix + hex.EncodeToString(sum[:])
}

// expiration converts ttl to memcached's expiration field. It returns 0 when
// ttl truncates to less than one second, which callers treat as "do not store".
func (s *Memcached) expiration(ttl time.Duration) int32 {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		return 0
	}
	if seconds > maxRelativeExpiration {
		return int32(s.now().Add(ttl).Unix())
	}
	return int32(seconds)
}

// Get retrieves an entry. Missing and undecodable entries are reported as
// cache.ErrCacheMiss; the latter are logged.
func (s *Memcached) Get(_ context.Context, key string) (*cache.Entry, error) {
	if key == "" {
		return nil, cache.ErrCacheMiss
	}

	item, err := s.client.Get(s.itemKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			observe(backendMemcached, "get", "miss")
			return nil, cache.ErrCacheMiss
		}
		observe(backendMemcached, "get", "error")
		return nil, fmt.Errorf("memcached get: %w", err)
	}

	entry, err := decodeEntry(item.Value)
	if err != nil {
		observe(backendMemcached, "get", "error")
		s.logger.Warn().Err(err).Str("key", key).Msg("Discarding malformed cache entry")
		return nil, cache.ErrCacheMiss
	}

	observe(backendMemcached, "get", "hit")
	return entry, nil
}

// Set stores entry with ttl truncated to whole seconds.
func (s *Memcached) Set(_ context.Context, key string, entry *cache.Entry, ttl time.Duration) error {
	exp := s.expiration(ttl)
	if key == "" || exp == 0 {
		observe(backendMemcached, "set", "skipped")
		return nil
	}

	data, err := encodeEntry(entry)
	if err != nil {
		observe(backendMemcached, "set", "error")
		return err
	}

	if err := s.client.Set(&memcache.Item{
		Key:        s.itemKey(key),
		Value:      data,
		Expiration: exp,
	}); err != nil {
		observe(backendMemcached, "set", "error")
		return fmt.Errorf("memcached set: %w", err)
	}

	observe(backendMemcached, "set", "ok")
	return nil
}

// Remove deletes key. Deleting an absent key is not an error.
func (s *Memcached) Remove(_ context.Context, key string) error {
	err := s.client.Delete(s.itemKey(key))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		observe(backendMemcached, "remove", "error")
		return fmt.Errorf("memcached delete: %w", err)
	}
	observe(backendMemcached, "remove", "ok")
	return nil
}

// Ping checks connectivity when the client supports it.
func (s *Memcached) Ping(_ context.Context) error {
	if p, ok := s.client.(interface{ Ping() error }); ok {
		return p.Ping()
	}
	return nil
}

// Close releases the client's connections when the client supports it.
func (s *Memcached) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
