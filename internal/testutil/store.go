package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/response-cache/pkg/cache"
)

// SetCall records one Store.Set invocation.
type SetCall struct {
	Key   string
	Entry *cache.Entry
	TTL   time.Duration
}

// FakeStore is an unbounded map-backed cache.Store that records writes and
// can be told to fail.
type FakeStore struct {
	mu      sync.Mutex
	entries map[string]*cache.Entry
	sets    []SetCall

	// GetErr, when set, is returned by every Get.
	GetErr error

	// SetErr, when set, is returned by every Set and nothing is stored.
	SetErr error
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{entries: make(map[string]*cache.Entry)}
}

// Get implements cache.Store.
func (s *FakeStore) Get(_ context.Context, key string) (*cache.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetErr != nil {
		return nil, s.GetErr
	}
	e, ok := s.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return e, nil
}

// Set implements cache.Store.
func (s *FakeStore) Set(_ context.Context, key string, entry *cache.Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets = append(s.sets, SetCall{Key: key, Entry: entry, TTL: ttl})
	if s.SetErr != nil {
		return s.SetErr
	}
	s.entries[key] = entry
	return nil
}

// Remove implements cache.Store.
func (s *FakeStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sets returns a copy of the recorded Set calls.
func (s *FakeStore) Sets() []SetCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SetCall(nil), s.sets...)
}

// Len returns the number of stored entries.
func (s *FakeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
