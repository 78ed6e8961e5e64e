package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/Sternrassler/response-cache/pkg/cache"
)

// fakeMemcache is an in-memory memcacheClient that records expirations.
type fakeMemcache struct {
	mu     sync.Mutex
	items  map[string]*memcache.Item
	setErr error
	closed bool
}

func newFakeMemcache() *fakeMemcache {
	return &fakeMemcache{items: make(map[string]*memcache.Item)}
}

func (f *fakeMemcache) Get(key string) (*memcache.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return item, nil
}

func (f *fakeMemcache) Set(item *memcache.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.items[item.Key] = item
	return nil
}

func (f *fakeMemcache) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[key]; !ok {
		return memcache.ErrCacheMiss
	}
	delete(f.items, key)
	return nil
}

func (f *fakeMemcache) Close() error {
	f.closed = true
	return nil
}

func (f *fakeMemcache) only(t *testing.T) *memcache.Item {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) != 1 {
		t.Fatalf("Expected exactly one item, got %d", len(f.items))
	}
	for _, item := range f.items {
		return item
	}
	return nil
}

func TestDialMemcachedRequiresServers(t *testing.T) {
	if _, err := DialMemcached(nil); err == nil {
		t.Error("Expected error for empty server list")
	}
}

func TestMemcachedSetGet(t *testing.T) {
	ctx := context.Background()
	fake := newFakeMemcache()
	s := NewMemcached(fake, WithKeyPrefix("rc:"))

	key := "http://example.com/greet/bob?lang=en text/html"
	if err := s.Set(ctx, key, testEntry("hello"), 10*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	item := fake.only(t)
	if !strings.HasPrefix(item.Key, "rc:") {
		t.Errorf("Key %q missing prefix", item.Key)
	}
	if strings.ContainsAny(item.Key, " \t\n") || len(item.Key) > 250 {
		t.Errorf("Key %q is not a valid memcached key", item.Key)
	}
	if item.Expiration != 10 {
		t.Errorf("Expiration = %d, want 10", item.Expiration)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Body) != "hello" {
		t.Errorf("Body = %q, want hello", got.Body)
	}
}

func TestMemcachedExpiration(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ttl  time.Duration
		want int32
	}{
		{name: "whole_seconds", ttl: 10 * time.Second, want: 10},
		{name: "truncated", ttl: 2500 * time.Millisecond, want: 2},
		{name: "sub_second", ttl: 999 * time.Millisecond, want: 0},
		{name: "thirty_days", ttl: 30 * 24 * time.Hour, want: 30 * 24 * 60 * 60},
		{name: "beyond_thirty_days", ttl: 31 * 24 * time.Hour, want: int32(fixed.Add(31 * 24 * time.Hour).Unix())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemcached(newFakeMemcache())
			s.now = func() time.Time { return fixed }

			if got := s.expiration(tt.ttl); got != tt.want {
				t.Errorf("expiration(%v) = %d, want %d", tt.ttl, got, tt.want)
			}
		})
	}
}

func TestMemcachedSkipsSubSecondTTL(t *testing.T) {
	ctx := context.Background()
	fake := newFakeMemcache()
	s := NewMemcached(fake)

	if err := s.Set(ctx, "k", testEntry("x"), 500*time.Millisecond); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Set(ctx, "", testEntry("x"), time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if len(fake.items) != 0 {
		t.Errorf("Expected nothing stored, got %d items", len(fake.items))
	}
}

func TestMemcachedMalformedEntry(t *testing.T) {
	ctx := context.Background()
	fake := newFakeMemcache()
	s := NewMemcached(fake)

	fake.items[s.itemKey("k")] = &memcache.Item{Key: s.itemKey("k"), Value: []byte("{broken")}

	if _, err := s.Get(ctx, "k"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Get error = %v, want ErrCacheMiss", err)
	}
}

func TestMemcachedSetError(t *testing.T) {
	ctx := context.Background()
	fake := newFakeMemcache()
	fake.setErr = errors.New("server unavailable")
	s := NewMemcached(fake)

	err := s.Set(ctx, "k", testEntry("x"), time.Minute)
	if err == nil {
		t.Fatal("Expected Set error")
	}
	if !errors.Is(err, fake.setErr) {
		t.Errorf("Set error = %v, want wrapped %v", err, fake.setErr)
	}
}

func TestMemcachedRemoveAndClose(t *testing.T) {
	ctx := context.Background()
	fake := newFakeMemcache()
	s := NewMemcached(fake)

	if err := s.Set(ctx, "k", testEntry("x"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Get after Remove error = %v, want ErrCacheMiss", err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Errorf("Remove of absent key returned error: %v", err)
	}

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
	if !fake.closed {
		t.Error("Expected Close to close the client")
	}
}
