package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/response-cache/pkg/cache"
)

func testEntry(body string) *cache.Entry {
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("X-Greeting", "hello")
	return cache.NewEntry(header, http.StatusOK, []byte(body), 10*time.Second)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewMemory(t *testing.T) {
	if _, err := NewMemory(-1); err == nil {
		t.Error("Expected error for negative capacity")
	}

	m, err := NewMemory(0)
	if err != nil {
		t.Fatalf("NewMemory(0) failed: %v", err)
	}
	if m.Capacity() != 0 {
		t.Errorf("Capacity() = %d, want 0", m.Capacity())
	}
}

func TestMemorySetGet(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(10)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Fatalf("Get(missing) error = %v, want ErrCacheMiss", err)
	}

	if err := m.Set(ctx, "a", testEntry("A"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := m.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got.Body, []byte("A")) {
		t.Errorf("Body = %q, want %q", got.Body, "A")
	}
	if got.Header("x-greeting") != "hello" {
		t.Errorf("Header(x-greeting) = %q, want hello", got.Header("x-greeting"))
	}
	if m.Occupancy() != 1 {
		t.Errorf("Occupancy() = %d, want 1", m.Occupancy())
	}
}

func TestMemorySkipsInvalidWrites(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		entry *cache.Entry
		ttl   time.Duration
	}{
		{name: "empty_key", key: "", entry: testEntry("x"), ttl: time.Minute},
		{name: "zero_ttl", key: "k", entry: testEntry("x"), ttl: 0},
		{name: "negative_ttl", key: "k", entry: testEntry("x"), ttl: -time.Second},
		{name: "nil_entry", key: "k", entry: nil, ttl: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMemory(10)
			if err != nil {
				t.Fatalf("NewMemory failed: %v", err)
			}

			if err := m.Set(ctx, tt.key, tt.entry, tt.ttl); err != nil {
				t.Fatalf("Set returned error: %v", err)
			}
			if _, err := m.Get(ctx, tt.key); !errors.Is(err, cache.ErrCacheMiss) {
				t.Errorf("Get error = %v, want ErrCacheMiss", err)
			}
			if m.Occupancy() != 0 {
				t.Errorf("Occupancy() = %d, want 0", m.Occupancy())
			}
		})
	}
}

func TestMemoryCapacity(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(1)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	if err := m.Set(ctx, "a", testEntry("A"), time.Minute); err != nil {
		t.Fatalf("Set(a) failed: %v", err)
	}

	// Full: a new key is dropped without an error.
	if err := m.Set(ctx, "b", testEntry("B"), time.Minute); err != nil {
		t.Fatalf("Set(b) returned error: %v", err)
	}
	if _, err := m.Get(ctx, "b"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Get(b) error = %v, want ErrCacheMiss", err)
	}
	if _, err := m.Get(ctx, "a"); err != nil {
		t.Errorf("Get(a) failed: %v", err)
	}

	// Replacing an existing key is always accepted.
	if err := m.Set(ctx, "a", testEntry("A2"), time.Minute); err != nil {
		t.Fatalf("Set(a) replacement failed: %v", err)
	}
	got, err := m.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get(a) failed: %v", err)
	}
	if string(got.Body) != "A2" {
		t.Errorf("Body = %q, want A2", got.Body)
	}
	if m.Occupancy() != 1 {
		t.Errorf("Occupancy() = %d, want 1", m.Occupancy())
	}
}

func TestMemoryRemoveFreesCapacity(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(1)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	if err := m.Set(ctx, "a", testEntry("A"), time.Minute); err != nil {
		t.Fatalf("Set(a) failed: %v", err)
	}
	if err := m.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove(a) failed: %v", err)
	}
	waitFor(t, func() bool { return m.Occupancy() == 0 })

	if err := m.Set(ctx, "b", testEntry("B"), time.Minute); err != nil {
		t.Fatalf("Set(b) failed: %v", err)
	}
	if _, err := m.Get(ctx, "b"); err != nil {
		t.Errorf("Get(b) failed after capacity was freed: %v", err)
	}

	// Removing an absent key is not an error.
	if err := m.Remove(ctx, "missing"); err != nil {
		t.Errorf("Remove(missing) returned error: %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(10)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	if err := m.Set(ctx, "short", testEntry("S"), 50*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := m.Get(ctx, "short"); err != nil {
		t.Fatalf("Get before expiry failed: %v", err)
	}

	time.Sleep(120 * time.Millisecond)

	if _, err := m.Get(ctx, "short"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Get after expiry error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryExpiryFreesCapacity(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "new_key_admitted", key: "b"},
		{name: "expired_key_reset", key: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m, err := NewMemory(1)
			if err != nil {
				t.Fatalf("NewMemory failed: %v", err)
			}

			if err := m.Set(ctx, "a", testEntry("A"), 50*time.Millisecond); err != nil {
				t.Fatalf("Set(a) failed: %v", err)
			}
			time.Sleep(100 * time.Millisecond)

			if err := m.Set(ctx, tt.key, testEntry("fresh"), time.Minute); err != nil {
				t.Fatalf("Set(%s) failed: %v", tt.key, err)
			}
			got, err := m.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get(%s) after expiry freed the slot: %v", tt.key, err)
			}
			if string(got.Body) != "fresh" {
				t.Errorf("Body = %q, want fresh", got.Body)
			}
			if m.Occupancy() != 1 {
				t.Errorf("Occupancy() = %d, want 1", m.Occupancy())
			}
		})
	}
}

func TestMemoryExpiryDecrementsOccupancy(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(1)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	if err := m.Set(ctx, "a", testEntry("A"), 50*time.Millisecond); err != nil {
		t.Fatalf("Set(a) failed: %v", err)
	}
	if m.Occupancy() != 1 {
		t.Fatalf("Occupancy() = %d, want 1", m.Occupancy())
	}

	time.Sleep(100 * time.Millisecond)

	if m.Occupancy() != 0 {
		t.Errorf("Occupancy() after expiry = %d, want 0", m.Occupancy())
	}
	if _, err := m.Get(ctx, "a"); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Get(a) after expiry error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryConcurrentCapacity(t *testing.T) {
	ctx := context.Background()
	const capacity = 5
	m, err := NewMemory(capacity)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.Set(ctx, fmt.Sprintf("k%d", i), testEntry("v"), time.Minute)
		}(i)
	}
	wg.Wait()

	if m.Occupancy() != capacity {
		t.Errorf("Occupancy() = %d, want %d", m.Occupancy(), capacity)
	}
	hits := 0
	for i := range 50 {
		if _, err := m.Get(ctx, fmt.Sprintf("k%d", i)); err == nil {
			hits++
		}
	}
	if hits != capacity {
		t.Errorf("Stored %d entries, want %d", hits, capacity)
	}
}

func TestMemoryUnlimited(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(0)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	for i := range 100 {
		if err := m.Set(ctx, fmt.Sprintf("k%d", i), testEntry("v"), time.Minute); err != nil {
			t.Fatalf("Set(k%d) failed: %v", i, err)
		}
	}
	for i := range 100 {
		if _, err := m.Get(ctx, fmt.Sprintf("k%d", i)); err != nil {
			t.Errorf("Get(k%d) failed: %v", i, err)
		}
	}

	m.Purge()
	waitFor(t, func() bool { return m.Occupancy() == 0 })
}
