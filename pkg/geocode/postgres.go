package geocode

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/geoforge/mapcli/internal/db"
)

// PostgresCache persists geocode results in a shared Postgres table so
// multiple hosts can reuse lookups.
type PostgresCache struct {
	pool db.Pool
}

// NewPostgresCache creates a Postgres-backed cache and ensures its table
// exists.
func NewPostgresCache(ctx context.Context, pool db.Pool) (*PostgresCache, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS geocode_cache (
			place_hash   TEXT PRIMARY KEY,
			latitude     DOUBLE PRECISION NOT NULL,
			longitude    DOUBLE PRECISION NOT NULL,
			display_name TEXT,
			source       TEXT NOT NULL,
			matched      BOOLEAN NOT NULL,
			cached_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres cache: migrate")
	}
	return &PostgresCache{pool: pool}, nil
}

// Get implements Cache.
func (c *PostgresCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	var r Result
	var displayName *string

	row := c.pool.QueryRow(ctx,
		`SELECT latitude, longitude, display_name, source, matched FROM geocode_cache WHERE place_hash = $1`, key)
	if err := row.Scan(&r.Latitude, &r.Longitude, &displayName, &r.Source, &r.Matched); err != nil {
		// No row or scan error — treat as a miss and let the caller geocode.
		return nil, false, nil //nolint:nilerr
	}

	if displayName != nil {
		r.DisplayName = *displayName
	}
	return &r, true, nil
}

// Put implements Cache.
func (c *PostgresCache) Put(ctx context.Context, key string, r *Result) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO geocode_cache (place_hash, latitude, longitude, display_name, source, matched, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (place_hash) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			display_name = EXCLUDED.display_name,
			source = EXCLUDED.source,
			matched = EXCLUDED.matched,
			cached_at = now()`,
		key, r.Latitude, r.Longitude, nilIfEmpty(r.DisplayName), r.Source, r.Matched,
	)
	if err != nil {
		return eris.Wrap(err, "postgres cache: put")
	}
	return nil
}

// Close implements Cache. The pool is owned by the caller.
func (c *PostgresCache) Close() error { return nil }
