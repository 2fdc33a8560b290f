package geocode

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteCache persists geocode results across runs in a local SQLite file.
type SQLiteCache struct {
	db *sql.DB
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	place_hash   TEXT PRIMARY KEY,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	display_name TEXT,
	source       TEXT NOT NULL,
	matched      INTEGER NOT NULL,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);`

// NewSQLiteCache opens (creating if needed) a SQLite cache at the given
// path and configures WAL mode.
func NewSQLiteCache(dsn string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteMigration); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteCache{db: db}, nil
}

// Get implements Cache.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	var r Result
	var displayName sql.NullString
	var matched int

	row := c.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, display_name, source, matched FROM geocode_cache WHERE place_hash = ?`, key)
	if err := row.Scan(&r.Latitude, &r.Longitude, &displayName, &r.Source, &matched); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "sqlite: get")
	}

	r.Matched = matched != 0
	if displayName.Valid {
		r.DisplayName = displayName.String
	}
	return &r, true, nil
}

// Put implements Cache.
func (c *SQLiteCache) Put(ctx context.Context, key string, r *Result) error {
	matched := 0
	if r.Matched {
		matched = 1
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (place_hash, latitude, longitude, display_name, source, matched, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (place_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			display_name = excluded.display_name,
			source = excluded.source,
			matched = excluded.matched,
			cached_at = datetime('now')`,
		key, r.Latitude, r.Longitude, nilIfEmpty(r.DisplayName), r.Source, matched,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: put")
	}
	return nil
}

// Close implements Cache.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// nilIfEmpty returns nil for empty strings, allowing NULL storage.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
