package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/response-cache/internal/config"
	"github.com/Sternrassler/response-cache/pkg/cache"
	"github.com/Sternrassler/response-cache/pkg/logging"
	"github.com/Sternrassler/response-cache/pkg/store"
)

// backend is a configured store plus its lifecycle hooks.
type backend struct {
	cache.Store
	name  string
	ping  func(context.Context) error
	close func() error
}

func (b *backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// newBackend builds the store selected in cfg.
func newBackend(cfg config.CacheConfig, logger zerolog.Logger) (*backend, error) {
	opts := []store.Option{
		store.WithLogger(logger.With().Str("backend", cfg.Backend).Logger()),
		store.WithKeyPrefix(cfg.KeyPrefix),
	}

	switch cfg.Backend {
	case config.BackendMemory:
		m, err := store.NewMemory(cfg.Capacity, opts...)
		if err != nil {
			return nil, fmt.Errorf("create memory store: %w", err)
		}
		return &backend{Store: m, name: cfg.Backend, close: func() error {
			m.Purge()
			return nil
		}}, nil

	case config.BackendRedis:
		r := store.NewRedis(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), opts...)
		return &backend{Store: r, name: cfg.Backend, ping: r.Ping, close: r.Close}, nil

	case config.BackendMemcached:
		mc, err := store.DialMemcached(cfg.Memcached.Servers, opts...)
		if err != nil {
			return nil, fmt.Errorf("create memcached store: %w", err)
		}
		return &backend{Store: mc, name: cfg.Backend, ping: mc.Ping, close: mc.Close}, nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(ctx context.Context, configPath string) error {
	// Load config
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("cache-demo")

	// Open store
	b, err := newBackend(cfg.Cache, logging.NewLogger("cache-store"))
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close cache store")
		}
	}()

	mw, err := cache.New(b,
		cache.WithAcceptEncodingSalt(cfg.Cache.ETagAcceptEncoding),
		cache.WithLogger(logging.NewLogger("response-cache")),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: newServer(Deps{
			Cache:      mw,
			ReadyCheck: b.Ping,
			Metrics:    cfg.Metrics.Enabled,
			Logger:     logger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("version", version).
			Str("addr", cfg.Server.Addr).
			Str("backend", b.name).
			Msg("Cache demo ready")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("Cache demo stopped")
	return nil
}
