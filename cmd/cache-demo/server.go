package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Sternrassler/response-cache/pkg/cache"
	"github.com/Sternrassler/response-cache/pkg/logging"
	"github.com/Sternrassler/response-cache/pkg/metrics"
)

// greetTTL is how long a greeting stays cached.
const greetTTL = 10

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Cache      *cache.Middleware
	ReadyCheck func(context.Context) error // nil = always ready
	Metrics    bool
	Logger     zerolog.Logger
	Now        func() time.Time // nil = time.Now
}

type server struct {
	deps Deps
}

// newServer creates an http.Handler with all routes and middleware wired.
func newServer(deps Deps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(logging.AccessLog(deps.Logger))
	r.Use(s.requestID)

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.Metrics {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	// Cached endpoints
	r.Group(func(r chi.Router) {
		r.Use(deps.Cache.Handler)
		r.Get("/greet/{name}", s.handleGreet)
	})

	return r
}

// recovery catches panics and returns 500.
func (s *server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.deps.Logger.Error().
					Interface("error", rec).
					Str("path", r.URL.Path).
					Msg("Panic recovered")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

const requestIDHeader = "X-Request-Id"

// requestID echoes or assigns a UUID v7 request ID and adds it to the request logger.
func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if vals := r.Header[requestIDHeader]; len(vals) > 0 && vals[0] != "" {
			id = vals[0]
		} else {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header()[requestIDHeader] = []string{id}
		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("request_id", id)
		})
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReadyCheck != nil {
		if err := s.deps.ReadyCheck(r.Context()); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "READY")
}

// handleGreet answers with the name and the time the response was produced,
// so replays from the cache are recognisable by their unchanged timestamp.
func (s *server) handleGreet(w http.ResponseWriter, r *http.Request) {
	cache.AsCacheable(r.Context(), greetTTL)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Hello %s %s", chi.URLParam(r, "name"), s.deps.Now().Format(time.RFC3339Nano))
}
