// Package application assembles the catalog from configuration: the store
// for the configured driver, the repository, the importer with its limiter,
// and the optional Redis cache and NATS publisher. The server and the CLI
// both start here.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/catalog/internal/cache"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/events"
	"github.com/JonMunkholm/catalog/internal/importer"
	"github.com/JonMunkholm/catalog/internal/repository"
	"github.com/JonMunkholm/catalog/internal/service"
	"github.com/JonMunkholm/catalog/internal/slug"
	"github.com/JonMunkholm/catalog/internal/store"
	"github.com/JonMunkholm/catalog/internal/store/postgres"
	"github.com/JonMunkholm/catalog/internal/store/sqlite"
)

// App is a running catalog. Close releases everything Open acquired.
type App struct {
	Service *service.Service
	Store   store.Store
	Limiter *importer.Limiter

	closers []func() error
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// Open builds the App. name identifies this process to NATS.
//
// The store must open; Redis and NATS are optional and a failure to reach
// either is logged and the App runs without it.
func Open(ctx context.Context, cfg *config.Config, name string) (*App, error) {
	a := &App{}

	st, err := a.openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Store = st

	if m, ok := st.(migrator); ok && cfg.Database.Migrate {
		if err := m.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	slugs := slug.NewGenerator(st, slug.WithMaxAttempts(cfg.Import.SlugMaxAttempts))
	repo := repository.New(st, slugs)

	a.Limiter = importer.NewLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWait)
	imp := importer.New(repo,
		importer.WithLimiter(a.Limiter),
		importer.WithParseOptions(importer.ParseOptions{Quoted: cfg.Import.QuotedCSV}),
		importer.WithTimeout(cfg.Import.Timeout),
	)

	a.Service = service.New(repo, imp, a.openCache(ctx, cfg.Cache))
	a.openEvents(cfg.Events, name, imp)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		pool, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		slog.Info("connected to database", "driver", "postgres")
		return postgres.New(pool), nil

	case "sqlite":
		s, err := sqlite.Open(cfg.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		slog.Info("opened database", "driver", "sqlite", "path", cfg.URL)
		return s, nil

	case "memory":
		slog.Warn("using in-memory store, data is lost on exit")
		return store.NewMemory(), nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// openCache returns nil when Redis is not configured or unreachable.
func (a *App) openCache(ctx context.Context, cfg config.CacheConfig) *cache.ProductCache {
	if cfg.RedisURL == "" {
		return nil
	}
	client, err := cache.Open(ctx, cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, product cache disabled", "error", err)
		return nil
	}
	a.closers = append(a.closers, client.Close)
	slog.Info("product cache enabled", "ttl", cfg.TTL)
	return cache.New(client, cfg.TTL)
}

// openEvents registers the import publisher when NATS is configured and reachable.
func (a *App) openEvents(cfg config.EventsConfig, name string, imp *importer.Importer) {
	if cfg.NatsURL == "" {
		return
	}
	conn, err := events.Connect(cfg.NatsURL, name)
	if err != nil {
		slog.Warn("nats unavailable, import events disabled", "error", err)
		return
	}
	a.closers = append(a.closers, conn.Drain)
	imp.OnComplete(events.NewPublisher(conn, cfg.Subject).ImportHook())
	slog.Info("import events enabled", "subject", cfg.Subject)
}
