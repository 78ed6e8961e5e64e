// Package cache provides an HTTP response cache middleware with pluggable storage.
//
// The middleware implements response caching with the following features:
//
// - Deterministic cache keys derived from scheme, host, path, query, form and Accept
// - Handler-declared lifetimes (AsCacheable) instead of Cache-Control parsing
// - ETag generation for cached responses and 304 Not Modified on If-None-Match
// - Backend-agnostic Store contract (see package store for memory, Redis and Memcached)
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create a bounded in-process store
//	s, err := store.NewMemory(2048)
//	if err != nil {
//		return err
//	}
//
//	// Create the middleware
//	mw, err := cache.New(s)
//	if err != nil {
//		return err
//	}
//
//	// Wrap a handler and mark its response cacheable for 10 seconds
//	http.Handle("/greet", mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//		cache.AsCacheable(r.Context(), 10)
//		fmt.Fprintf(w, "Hello %s", r.URL.Query().Get("name"))
//	})))
//
// # Request Flow
//
// Requests that fail the request validator (default: GET only) or produce an
// empty key bypass the cache. A hit is written straight from the store and the
// handler is not called. On a miss the handler writes into a buffer; the buffer
// is flushed to the client and, if the handler called one of the AsCacheable
// functions with a positive lifetime and the response validator (default: 200
// only) accepts the response, the entry is stored.
//
// # Conditional Requests
//
//	// A client that received ETag "abc" earlier
//	req.Header.Set("If-None-Match", `"abc"`)
//	// A hit with a matching ETag is answered with 304 and Content-Length: 0
//
// # Concurrency
//
// The middleware takes no locks of its own. Two concurrent misses for the same
// key both run the handler and both store; the last write wins.
//
// # Metrics
//
//   - response_cache_requests_total{result} - hit, miss, bypass, not_modified
//   - response_cache_entries_stored_total - Responses handed to the store
//   - response_cache_errors_total{operation} - Store get/set failures
package cache
