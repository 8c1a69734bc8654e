// Package db provides the Postgres connection, schema migration, and the
// alerts subscription store.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres connection for dsn.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies the schema with idempotent DDL. It is the fallback for
// environments where the versioned migrations directory is not shipped.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			subscriber_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			target_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT alerts_subscriber_channel_target_key UNIQUE (subscriber_id, channel, target_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_channel ON alerts(channel)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_target_subscriber ON alerts(target_id, subscriber_id)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}
