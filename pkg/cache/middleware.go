package cache

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestValidator decides whether a request may be served from or stored in the cache.
type RequestValidator func(r *http.Request) bool

// ResponseValidator decides whether a captured response may be stored.
type ResponseValidator func(statusCode int, header http.Header) bool

// DefaultRequestValidator accepts GET requests only.
func DefaultRequestValidator(r *http.Request) bool {
	return r != nil && r.Method == http.MethodGet
}

// DefaultResponseValidator accepts 200 OK responses only.
func DefaultResponseValidator(statusCode int, _ http.Header) bool {
	return statusCode == http.StatusOK
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithKeyGenerator replaces DefaultKeyGenerator.
func WithKeyGenerator(k KeyGenerator) Option {
	return func(m *Middleware) {
		if k != nil {
			m.keys = k
		}
	}
}

// WithRequestValidator replaces DefaultRequestValidator.
func WithRequestValidator(v RequestValidator) Option {
	return func(m *Middleware) {
		if v != nil {
			m.validRequest = v
		}
	}
}

// WithResponseValidator replaces DefaultResponseValidator.
func WithResponseValidator(v ResponseValidator) Option {
	return func(m *Middleware) {
		if v != nil {
			m.validResponse = v
		}
	}
}

// WithAcceptEncodingSalt mixes the request's Accept-Encoding into generated ETags.
func WithAcceptEncodingSalt(enabled bool) Option {
	return func(m *Middleware) {
		m.saltETag = enabled
	}
}

// WithLogger sets the logger used by the middleware.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

// Middleware serves cached responses and captures new ones.
type Middleware struct {
	store         Store
	keys          KeyGenerator
	validRequest  RequestValidator
	validResponse ResponseValidator
	saltETag      bool
	logger        zerolog.Logger
}

// New creates a caching middleware backed by store.
func New(store Store, opts ...Option) (*Middleware, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	m := &Middleware{
		store:         store,
		keys:          DefaultKeyGenerator{},
		validRequest:  DefaultRequestValidator,
		validResponse: DefaultResponseValidator,
		logger:        log.With().Str("component", "response-cache").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Handler wraps next with the cache.
//
// A hit is written from the store and next is not called. A miss runs next
// against a buffer, flushes the buffer to w, and stores the result if the
// handler marked the response cacheable.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Step 1: gate on request validity, then fingerprint
		if !m.validRequest(r) {
			m.bypass(w, r, next)
			return
		}
		key := m.keys.Key(r)
		if key == "" {
			m.bypass(w, r, next)
			return
		}

		// Step 2: lookup
		entry, err := m.store.Get(r.Context(), key)
		if err == nil && entry != nil {
			m.serveHit(w, r, key, entry)
			return
		}
		if err != nil && !errors.Is(err, ErrCacheMiss) {
			Errors.WithLabelValues("get").Inc()
			m.logger.Warn().Err(err).Str("key", key).Msg("Cache get error")
		}

		// Step 3: capture, flush, store
		Requests.WithLabelValues(ResultMiss).Inc()
		m.serveMiss(w, r, key, next)
	})
}

func (m *Middleware) bypass(w http.ResponseWriter, r *http.Request, next http.Handler) {
	Requests.WithLabelValues(ResultBypass).Inc()
	next.ServeHTTP(w, r)
}

func (m *Middleware) serveHit(w http.ResponseWriter, r *http.Request, key string, entry *Entry) {
	notModified, err := writeEntry(w, r, entry)
	if notModified {
		Requests.WithLabelValues(ResultNotModified).Inc()
	} else {
		Requests.WithLabelValues(ResultHit).Inc()
	}
	if err != nil {
		m.logger.Debug().Err(err).Str("key", key).Msg("Failed to write cached response")
		return
	}
	m.logger.Debug().
		Str("key", key).
		Int("status", entry.StatusCode).
		Bool("not_modified", notModified).
		Msg("Cache hit")
}

func (m *Middleware) serveMiss(w http.ResponseWriter, r *http.Request, key string, next http.Handler) {
	exp := newExpiration()
	r = r.WithContext(withExpiration(r.Context(), exp))

	capture := acquireCapture(w)
	defer capture.release()

	next.ServeHTTP(capture, r)

	// A cancelled request is neither flushed nor stored.
	if err := r.Context().Err(); err != nil {
		m.logger.Debug().Err(err).Str("key", key).Msg("Request cancelled, discarding captured response")
		return
	}

	header := w.Header()
	status := capture.Status()
	body := capture.Bytes()

	if len(body) > 0 {
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", http.DetectContentType(body))
		}
		if m.validResponse(status, header) {
			var salt string
			if m.saltETag {
				salt = r.Header.Get("Accept-Encoding")
			}
			addETag(header, status, Checksum(body, salt))
		}
	}

	ttl, expHeader, marked := exp.Get()
	cacheable := marked && ttl > 0 && m.validResponse(status, header)
	if cacheable {
		header.Set(expHeader, strconv.FormatInt(int64(ttl.Seconds()), 10))
	}

	// Build the entry before flushing: the body slice belongs to the pooled
	// buffer and the live writer may add headers of its own.
	var entry *Entry
	if cacheable {
		entry = NewEntry(header, status, body, ttl)
	}

	if err := capture.flush(); err != nil {
		m.logger.Debug().Err(err).Str("key", key).Msg("Failed to flush response")
	}

	if entry == nil {
		return
	}

	if err := m.store.Set(context.WithoutCancel(r.Context()), key, entry, ttl); err != nil {
		Errors.WithLabelValues("set").Inc()
		m.logger.Error().Err(err).Str("key", key).Msg("Failed to cache response")
		return
	}
	EntriesStored.Inc()
	m.logger.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Int("status", status).
		Msg("Cached response")
}
