package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/reelscout/backend/config"
	"github.com/reelscout/backend/internal/domain"
	"github.com/reelscout/backend/internal/infrastructure/cache"
	"github.com/reelscout/backend/internal/infrastructure/fetcher"
	"github.com/reelscout/backend/internal/infrastructure/kiosk"
	"github.com/reelscout/backend/internal/infrastructure/lock"
	"github.com/reelscout/backend/internal/infrastructure/ratings"
	"github.com/reelscout/backend/internal/infrastructure/storage"
	"github.com/reelscout/backend/internal/logging"
	"github.com/reelscout/backend/internal/usecase"
)

// app wires the infrastructure and use cases shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	cache     domain.CacheRepository
	store     *storage.CatalogStore
	ingest    *usecase.IngestService
	inventory *usecase.InventoryService
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	if err := a.openCache(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	f := fetcher.New(a.cache, fetcher.Config{
		TTL:             cfg.Cache.TTL,
		RequestsPerHour: cfg.RateLimit.Upstream,
	}, fetcher.WithLogger(logger))

	kioskClient := kiosk.NewClient(f, kiosk.Config{
		APIKey:         cfg.Kiosk.APIKey,
		BaseURL:        cfg.Kiosk.BaseURL,
		ReservationURL: cfg.Kiosk.ReservationURL,
		PageSize:       cfg.Kiosk.PageSize,
	}, logger)
	ratingsClient := ratings.NewClient(f, cfg.Ratings.APIKey, cfg.Ratings.BaseURL, logger)

	ingestLock, err := lock.NewFileLock(cfg.Ingest.LockPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.ingest = usecase.NewIngestService(
		kioskClient,
		ratingsClient,
		a.store,
		usecase.NewTitleMatcher(cfg.Matching.Threshold),
		ingestLock,
		usecase.IngestConfig{MaxPages: cfg.Ingest.MaxPages},
		logger,
	)
	a.inventory = usecase.NewInventoryService(
		kioskClient,
		a.store,
		usecase.InventoryConfig{
			MaxKiosks:  cfg.Kiosk.MaxKiosks,
			MaxResults: cfg.Inventory.MaxResults,
		},
		logger,
	)
	return a, nil
}

func (a *app) openCache(ctx context.Context) error {
	switch a.cfg.Cache.Type {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, a.cfg.Cache.RedisURL, "reelscout:")
		if err != nil {
			return fmt.Errorf("open redis cache: %w", err)
		}
		a.cache = rc
		a.closers = append(a.closers, rc.Close)
	default:
		mc := cache.NewMemoryCache()
		a.cache = mc
		a.closers = append(a.closers, mc.Close)
	}
	a.logger.Info("cache ready", "type", a.cfg.Cache.Type, "ttl", a.cfg.Cache.TTL)
	return nil
}

func (a *app) openStore(ctx context.Context) error {
	var (
		store *storage.CatalogStore
		err   error
	)
	switch a.cfg.Store.Driver {
	case "postgres":
		store, err = storage.OpenPostgres(ctx, a.cfg.Store.DSN)
	default:
		store, err = storage.OpenSQLite(ctx, a.cfg.Store.Path)
	}
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	a.logger.Info("catalog store ready", "driver", a.cfg.Store.Driver)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
