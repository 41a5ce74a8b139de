// Package app assembles the Scribe components from configuration and runs
// the HTTP servers.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/prn-tf/scribe/internal/auth"
	"github.com/prn-tf/scribe/internal/cache/memory"
	"github.com/prn-tf/scribe/internal/cache/redis"
	"github.com/prn-tf/scribe/internal/config"
	"github.com/prn-tf/scribe/internal/handler"
	"github.com/prn-tf/scribe/internal/metrics"
	"github.com/prn-tf/scribe/internal/repository"
	"github.com/prn-tf/scribe/internal/repository/factory"
	"github.com/prn-tf/scribe/internal/service"
)

// memoryCleanupInterval is how often the in-process cache drops expired entries.
const memoryCleanupInterval = time.Minute

// App holds every long-lived component of a running Scribe process.
type App struct {
	cfg    *config.Config
	base   zerolog.Logger
	logger zerolog.Logger

	Store   *repository.Store
	Cache   repository.Cache
	Metrics *metrics.Metrics
	Tokens  *auth.TokenManager
	Users   *service.UserService
	Blogs   *service.BlogService
}

// New opens the store, applies migrations when configured and builds the services.
// The caller must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	store, err := factory.New(cfg.Database, logger).Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := store.Migrator.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a := &App{
		cfg:    cfg,
		base:   logger,
		logger: logger.With().Str("component", "app").Logger(),
		Store:  store,
		Tokens: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer),
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
	}

	a.Cache = a.newCache(ctx, logger)

	blogCfg := service.BlogConfig{
		MinTitleLength:  cfg.Blog.MinTitleLength,
		MinBodyLength:   cfg.Blog.MinBodyLength,
		DefaultPageSize: cfg.Blog.DefaultPageSize,
		MaxPageSize:     cfg.Blog.MaxPageSize,
	}
	if a.Cache != nil {
		blogCfg.CacheTTL = cfg.Cache.TTL
	}

	a.Users = service.NewUserService(store.Repos.User, a.Tokens, cfg.Auth.BcryptCost, a.Metrics, logger)
	a.Blogs = service.NewBlogService(store.Repos.Blog, a.Cache, blogCfg, a.Metrics, logger)

	return a, nil
}

// newCache picks Redis when enabled and reachable, the in-process cache otherwise.
// It returns nil when caching is disabled.
func (a *App) newCache(ctx context.Context, logger zerolog.Logger) repository.Cache {
	if !a.cfg.Cache.Enabled {
		a.logger.Info().Msg("blog cache disabled")
		return nil
	}

	if a.cfg.Redis.Enabled {
		c, err := redis.NewCache(ctx, a.cfg.Redis, logger)
		if err == nil {
			a.logger.Info().Str("addr", a.cfg.Redis.Addr()).Msg("using redis blog cache")
			return c
		}
		a.logger.Warn().Err(err).Msg("redis unavailable, falling back to in-memory cache")
	}

	return memory.NewCache(memoryCleanupInterval)
}

// Handler builds the API handler.
func (a *App) Handler() http.Handler {
	router := handler.NewRouter(handler.RouterConfig{
		UserHandler:   handler.NewUserHandler(a.Users, a.base),
		BlogHandler:   handler.NewBlogHandler(a.Blogs, a.base),
		TokenVerifier: a.Tokens,
		Metrics:       a.Metrics,
		Health:        a.health(),
		MaxBodySize:   a.cfg.Server.MaxBodySize,
		Logger:        a.base,
	})
	return router.Handler()
}

// pinger is implemented by caches that live outside the process.
type pinger interface {
	Ping(ctx context.Context) error
}

var _ pinger = (*redis.Cache)(nil)

// healthCheck reports the database and, when it is remote, the cache.
type healthCheck struct {
	db    repository.DatabaseHealth
	cache pinger
}

func (h healthCheck) Health(ctx context.Context) error {
	if err := h.db.Health(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

func (a *App) health() healthCheck {
	h := healthCheck{db: a.Store.Database}
	if p, ok := a.Cache.(pinger); ok {
		h.cache = p
	}
	return h
}

// Run serves the API, and metrics when enabled, until ctx is cancelled or a
// server fails. Servers are shut down gracefully within server.shutdown_timeout.
func (a *App) Run(ctx context.Context) error {
	api := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
	servers := []*http.Server{api}

	if a.Metrics != nil {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Metrics.Path, a.Metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			a.logger.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// Close releases the cache and the database.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
