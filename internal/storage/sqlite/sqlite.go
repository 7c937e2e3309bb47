// Package sqlite persists profiles and import jobs in a local SQLite file. It is
// the zero-infrastructure backend for development and single-host installs.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite handle configured for WAL mode.
type DB struct {
	db *sql.DB
}

// Open opens the database at dsn and applies the connection pragmas.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &DB{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS business_profiles (
	business_id       TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	address           TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	website           TEXT NOT NULL DEFAULT '',
	locations         TEXT NOT NULL DEFAULT '[]',
	booking_providers TEXT NOT NULL DEFAULT '[]',
	updated_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS business_services (
	business_id      TEXT NOT NULL REFERENCES business_profiles(business_id),
	slug             TEXT NOT NULL,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	duration_minutes INTEGER,
	price_from       REAL,
	price_to         REAL,
	is_core          INTEGER NOT NULL DEFAULT 0,
	bookable         INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (business_id, slug)
);

CREATE TABLE IF NOT EXISTS business_hours (
	business_id TEXT NOT NULL REFERENCES business_profiles(business_id),
	weekday     INTEGER NOT NULL CHECK (weekday BETWEEN 1 AND 7),
	open_time   TEXT NOT NULL,
	close_time  TEXT NOT NULL,
	PRIMARY KEY (business_id, weekday)
);

CREATE TABLE IF NOT EXISTS import_jobs (
	id           TEXT PRIMARY KEY,
	business_id  TEXT NOT NULL,
	status       TEXT NOT NULL,
	request      TEXT NOT NULL,
	summary      TEXT,
	error_code   TEXT NOT NULL DEFAULT '',
	error_text   TEXT NOT NULL DEFAULT '',
	submitted_at DATETIME NOT NULL,
	started_at   DATETIME,
	finished_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_import_jobs_business_id ON import_jobs(business_id);
`

// Migrate creates the tables when they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Ping reports whether the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return eris.Wrap(d.db.PingContext(ctx), "sqlite: ping")
}

// Close closes the handle.
func (d *DB) Close() error {
	return d.db.Close()
}
