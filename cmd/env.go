package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/db"
	"github.com/geoforge/mapcli/internal/resolve"
	"github.com/geoforge/mapcli/pkg/geocode"
)

// newGeocodeClient assembles the geocoding client with the configured
// cache backend. The returned cleanup closes the cache and any pool.
func newGeocodeClient(ctx context.Context) (geocode.Client, func(), error) {
	base := geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
		geocode.WithTimeout(time.Duration(cfg.Geocode.TimeoutSecs)*time.Second),
	)

	var (
		cache   geocode.Cache
		cleanup func()
	)
	switch cfg.Geocode.Cache.Backend {
	case "memory":
		cache = geocode.NewMemoryCache()
		cleanup = func() {}

	case "sqlite":
		c, err := geocode.NewSQLiteCache(cfg.Geocode.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		cache = c
		cleanup = func() { _ = c.Close() }

	case "postgres":
		if cfg.Geocode.Cache.DatabaseURL == "" {
			return nil, nil, eris.New("postgres cache requires a database URL (MAPCLI_GEOCODE_CACHE_DATABASE_URL)")
		}
		pool, err := db.Connect(ctx, cfg.Geocode.Cache.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		c, err := geocode.NewPostgresCache(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		cache = c
		cleanup = func() { pool.Close() }

	default:
		return nil, nil, eris.Errorf("unknown geocode cache backend %q", cfg.Geocode.Cache.Backend)
	}

	zap.L().Debug("geocode client ready",
		zap.String("base_url", cfg.Geocode.BaseURL),
		zap.String("cache", cfg.Geocode.Cache.Backend),
	)
	return geocode.NewCachedClient(base, cache), cleanup, nil
}

// newResolver builds a Resolver over the given client from config.
func newResolver(client geocode.Client) *resolve.Resolver {
	return resolve.New(client, resolve.Options{
		LatField:   cfg.Resolve.LatField,
		LonField:   cfg.Resolve.LonField,
		PlaceField: cfg.Resolve.PlaceField,
		Workers:    cfg.Resolve.Workers,
	})
}
