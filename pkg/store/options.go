package store

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/response-cache/pkg/cache"
)

type options struct {
	logger zerolog.Logger
	prefix string
}

// Option configures a store.
type Option func(*options)

// WithLogger sets the logger a store reports faults to.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithKeyPrefix namespaces keys in remote stores. The memory store ignores it.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func newOptions(backend string, opts []Option) options {
	o := options{
		logger: log.With().Str("component", "cache-store").Str("backend", backend).Logger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var (
	_ cache.Store = (*Memory)(nil)
	_ cache.Store = (*Redis)(nil)
	_ cache.Store = (*Memcached)(nil)
)
