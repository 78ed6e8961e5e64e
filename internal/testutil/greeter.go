// Package testutil provides testing utilities for the response cache.
package testutil

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/response-cache/pkg/cache"
)

// Greeter is a handler that greets the last path segment, marks its response
// cacheable and counts how often it actually ran.
type Greeter struct {
	// TTL is the lifetime passed to AsCacheableFor. Zero leaves the
	// response unmarked.
	TTL time.Duration

	// Status is the status code written (default: 200).
	Status int

	// Now returns the timestamp embedded in the body (default: time.Now).
	Now func() time.Time

	mu    sync.Mutex
	calls int
}

// NewGreeter creates a Greeter marking responses cacheable for ttl.
func NewGreeter(ttl time.Duration) *Greeter {
	return &Greeter{TTL: ttl}
}

// ServeHTTP implements http.Handler.
func (g *Greeter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.TTL > 0 {
		cache.AsCacheableFor(r.Context(), g.TTL)
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	name := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	status := g.Status
	if status == 0 {
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "Hello %s %d", name, now().UnixNano())
}

// Calls returns how many times the handler ran.
func (g *Greeter) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
