package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultExpirationHeader announces the lifetime of a cached response.
const DefaultExpirationHeader = "X-Carter-Cache-Expiration"

// Expiration is the per-request annotation a handler sets to make its
// response cacheable. The middleware installs one in the request context
// before invoking the handler and reads it once the handler returns.
type Expiration struct {
	mu       sync.Mutex
	duration time.Duration
	header   string
	set      bool
}

func newExpiration() *Expiration {
	return &Expiration{header: DefaultExpirationHeader}
}

// Mark sets the lifetime and, when header is non-empty, the header name.
// Calling it again overwrites the previous values.
func (e *Expiration) Mark(d time.Duration, header string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = d
	e.set = true
	if header != "" {
		e.header = header
	}
}

// Get returns the declared lifetime, the header name, and whether the
// handler annotated the response at all.
func (e *Expiration) Get() (time.Duration, string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration, e.header, e.set
}

type expirationKey struct{}

func withExpiration(ctx context.Context, e *Expiration) context.Context {
	return context.WithValue(ctx, expirationKey{}, e)
}

// ExpirationFromContext returns the annotation installed by the middleware.
func ExpirationFromContext(ctx context.Context) (*Expiration, bool) {
	e, ok := ctx.Value(expirationKey{}).(*Expiration)
	return e, ok && e != nil
}

// AsCacheable marks the response cacheable for the given number of seconds.
// An optional header name replaces DefaultExpirationHeader.
func AsCacheable(ctx context.Context, seconds int, header ...string) {
	AsCacheableFor(ctx, time.Duration(seconds)*time.Second, header...)
}

// AsCacheableFor marks the response cacheable for d.
func AsCacheableFor(ctx context.Context, d time.Duration, header ...string) {
	e, ok := ExpirationFromContext(ctx)
	if !ok {
		return
	}
	var name string
	if len(header) > 0 {
		name = header[0]
	}
	e.Mark(d, name)
}

// AsCacheableUntil marks the response cacheable until t. A t in the past
// yields a negative lifetime, which is never stored.
func AsCacheableUntil(ctx context.Context, t time.Time, header ...string) {
	AsCacheableFor(ctx, time.Until(t), header...)
}
