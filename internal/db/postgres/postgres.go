// Package postgres opens PostgreSQL connections and owns the feedlock schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" //nolint:blankimports // PostgreSQL driver
)

// Config holds PostgreSQL connection parameters.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ai_classification_cache (
		id              UUID PRIMARY KEY,
		cache_key       TEXT NOT NULL UNIQUE,
		post_id         TEXT NOT NULL,
		keywords        TEXT[] NOT NULL,
		relevance_score NUMERIC(4,3) NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_cache_post_id ON ai_classification_cache (post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_cache_expires_at ON ai_classification_cache (expires_at)`,
	`CREATE TABLE IF NOT EXISTS rate_limit_tracking (
		id             UUID PRIMARY KEY,
		user_id        TEXT NOT NULL,
		tier           TEXT NOT NULL DEFAULT 'free',
		date           DATE NOT NULL,
		ai_calls_today INTEGER NOT NULL DEFAULT 0,
		last_reset     TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rate_limit_date ON rate_limit_tracking (date)`,
	`CREATE TABLE IF NOT EXISTS analytics_events (
		id                 UUID PRIMARY KEY,
		user_id            TEXT NOT NULL,
		post_id            TEXT NOT NULL,
		event_type         TEXT NOT NULL,
		relevance_score    NUMERIC(4,3) NOT NULL,
		matched_keywords   TEXT[] NOT NULL,
		filter_method      TEXT NOT NULL,
		processing_time_ms INTEGER NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_events_user_date ON analytics_events (user_id, created_at DESC)`,
}

// EnsureSchema creates the feedlock tables and indexes when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Pinger adapts *sql.DB to the Ping(ctx) probe used by health checks.
type Pinger struct {
	DB *sql.DB
}

// Ping checks connectivity.
func (p Pinger) Ping(ctx context.Context) error {
	if err := p.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
