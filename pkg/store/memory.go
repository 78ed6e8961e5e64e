package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/response-cache/pkg/cache"
)

// memoryEntry wraps a cached entry with its absolute expiration.
type memoryEntry struct {
	entry     *cache.Entry
	ttl       time.Duration
	expiresAt time.Time
}

// Memory is a bounded in-process store backed by otter.
//
// Occupancy is tracked separately from otter's own size accounting: a Set for
// a new key when occupancy has reached capacity is dropped rather than
// evicting anything. Replacing a live key always succeeds. Entries past their
// expiration stop counting as soon as a Set needs the room, without waiting
// for otter's expiry timer.
type Memory struct {
	cache    *otter.Cache[string, memoryEntry]
	capacity int64
	logger   zerolog.Logger

	// mu guards live and nextSweep. otter is never called with mu held,
	// since its deletion callback takes mu.
	mu        sync.Mutex
	live      map[string]time.Time
	nextSweep time.Time
}

// NewMemory creates an in-memory store holding at most capacity entries.
// A capacity of 0 means unlimited.
func NewMemory(capacity int, opts ...Option) (*Memory, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("capacity must be >= 0 (got %d)", capacity)
	}

	o := newOptions(backendMemory, opts)
	m := &Memory{
		capacity: int64(capacity),
		logger:   o.logger,
		live:     make(map[string]time.Time),
	}

	c, err := otter.New[string, memoryEntry](&otter.Options[string, memoryEntry]{
		ExpiryCalculator: otter.ExpiryWritingFunc[string, memoryEntry](func(e otter.Entry[string, memoryEntry]) time.Duration {
			return e.Value.ttl
		}),
		OnDeletion: m.onDeletion,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	m.cache = c
	return m, nil
}

// onDeletion keeps occupancy in step with entries leaving the cache.
// Replacements do not change occupancy, and an event for a value that has
// since been overwritten or already swept is ignored.
func (m *Memory) onDeletion(e otter.DeletionEvent[string, memoryEntry]) {
	if e.Cause == otter.CauseReplacement {
		return
	}
	m.mu.Lock()
	m.forgetLocked(e.Key, e.Value.expiresAt)
	m.mu.Unlock()

	m.logger.Debug().
		Str("key", e.Key).
		Str("cause", causeName(e.Cause)).
		Msg("Cache entry removed")
}

func causeName(c otter.DeletionCause) string {
	switch c {
	case otter.CauseInvalidation:
		return "invalidation"
	case otter.CauseOverflow:
		return "overflow"
	case otter.CauseExpiration:
		return "expiration"
	default:
		return "unknown"
	}
}

// forgetLocked drops key from the live set if it still refers to the value
// expiring at expiresAt.
func (m *Memory) forgetLocked(key string, expiresAt time.Time) {
	if exp, ok := m.live[key]; ok && exp.Equal(expiresAt) {
		delete(m.live, key)
		MemoryOccupancy.Dec()
	}
}

// sweepLocked drops every live key expired at now and returns them so the
// caller can invalidate them in otter once mu is released.
func (m *Memory) sweepLocked(now time.Time) []string {
	if now.Before(m.nextSweep) {
		return nil
	}

	var expired []string
	var next time.Time
	for key, exp := range m.live {
		if !now.Before(exp) {
			expired = append(expired, key)
			delete(m.live, key)
			continue
		}
		if next.IsZero() || exp.Before(next) {
			next = exp
		}
	}
	MemoryOccupancy.Sub(float64(len(expired)))
	m.nextSweep = next
	return expired
}

// Get retrieves an entry if present and not expired.
func (m *Memory) Get(_ context.Context, key string) (*cache.Entry, error) {
	e, ok := m.cache.GetIfPresent(key)
	if !ok {
		observe(backendMemory, "get", "miss")
		return nil, cache.ErrCacheMiss
	}
	if !time.Now().Before(e.expiresAt) {
		m.cache.Invalidate(key)
		observe(backendMemory, "get", "miss")
		return nil, cache.ErrCacheMiss
	}
	observe(backendMemory, "get", "hit")
	return e.entry, nil
}

// Set stores entry for ttl. New keys are dropped once the store is full.
func (m *Memory) Set(_ context.Context, key string, entry *cache.Entry, ttl time.Duration) error {
	if key == "" || ttl <= 0 || entry == nil {
		observe(backendMemory, "set", "skipped")
		return nil
	}

	now := time.Now()
	e := memoryEntry{
		entry:     entry,
		ttl:       ttl,
		expiresAt: now.Add(ttl),
	}

	m.mu.Lock()
	var expired []string
	exp, exists := m.live[key]
	if exists && !now.Before(exp) {
		// An expired key is stored as a new one.
		delete(m.live, key)
		MemoryOccupancy.Dec()
		exists = false
	}
	if !exists && m.capacity > 0 && int64(len(m.live)) >= m.capacity {
		expired = m.sweepLocked(now)
		if int64(len(m.live)) >= m.capacity {
			m.mu.Unlock()
			m.invalidate(expired)

			MemoryRejected.Inc()
			observe(backendMemory, "set", "skipped")
			m.logger.Debug().
				Str("key", key).
				Int64("capacity", m.capacity).
				Msg("Store at capacity, dropping entry")
			return nil
		}
	}
	if !exists {
		MemoryOccupancy.Inc()
	}
	m.live[key] = e.expiresAt
	if m.nextSweep.IsZero() || e.expiresAt.Before(m.nextSweep) {
		m.nextSweep = e.expiresAt
	}
	m.mu.Unlock()

	m.invalidate(expired)
	m.cache.Set(key, e)
	observe(backendMemory, "set", "ok")
	return nil
}

// invalidate removes already-forgotten keys from otter.
func (m *Memory) invalidate(keys []string) {
	for _, key := range keys {
		m.cache.Invalidate(key)
	}
}

// Remove deletes key if present.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	if _, ok := m.live[key]; ok {
		delete(m.live, key)
		MemoryOccupancy.Dec()
	}
	m.mu.Unlock()

	m.cache.Invalidate(key)
	observe(backendMemory, "remove", "ok")
	return nil
}

// Occupancy returns the number of unexpired entries counted against capacity.
func (m *Memory) Occupancy() int64 {
	m.mu.Lock()
	expired := m.sweepLocked(time.Now())
	n := int64(len(m.live))
	m.mu.Unlock()

	m.invalidate(expired)
	return n
}

// Capacity returns the configured capacity, 0 meaning unlimited.
func (m *Memory) Capacity() int64 {
	return m.capacity
}

// Purge removes all entries.
func (m *Memory) Purge() {
	m.mu.Lock()
	MemoryOccupancy.Sub(float64(len(m.live)))
	m.live = make(map[string]time.Time)
	m.nextSweep = time.Time{}
	m.mu.Unlock()

	m.cache.InvalidateAll()
}
