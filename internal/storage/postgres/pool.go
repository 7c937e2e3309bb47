// Package postgres persists business profiles and import jobs in Postgres.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DB is the subset of pgxpool.Pool the stores use. pgxmock pools satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// NewPool opens a connection pool using cfg.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS business_profiles (
	business_id       TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	address           TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	website           TEXT NOT NULL DEFAULT '',
	locations         JSONB NOT NULL DEFAULT '[]',
	booking_providers JSONB NOT NULL DEFAULT '[]',
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS business_services (
	business_id      TEXT NOT NULL REFERENCES business_profiles(business_id),
	slug             TEXT NOT NULL,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	duration_minutes INTEGER,
	price_from       DOUBLE PRECISION,
	price_to         DOUBLE PRECISION,
	is_core          BOOLEAN NOT NULL DEFAULT FALSE,
	bookable         BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (business_id, slug)
);

CREATE TABLE IF NOT EXISTS business_hours (
	business_id TEXT NOT NULL REFERENCES business_profiles(business_id),
	weekday     SMALLINT NOT NULL CHECK (weekday BETWEEN 1 AND 7),
	open_time   TEXT NOT NULL,
	close_time  TEXT NOT NULL,
	PRIMARY KEY (business_id, weekday)
);

CREATE TABLE IF NOT EXISTS import_jobs (
	id           TEXT PRIMARY KEY,
	business_id  TEXT NOT NULL,
	status       TEXT NOT NULL,
	request      JSONB NOT NULL,
	summary      JSONB,
	error_code   TEXT NOT NULL DEFAULT '',
	error_text   TEXT NOT NULL DEFAULT '',
	submitted_at TIMESTAMPTZ NOT NULL,
	started_at   TIMESTAMPTZ,
	finished_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_import_jobs_business_id ON import_jobs(business_id);
`

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
