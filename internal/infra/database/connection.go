package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	email TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	email             TEXT NOT NULL,
	phone             TEXT NOT NULL DEFAULT '',
	company           TEXT NOT NULL DEFAULT '',
	source            TEXT NOT NULL DEFAULT 'Website',
	status            TEXT NOT NULL DEFAULT 'New',
	priority          TEXT NOT NULL DEFAULT 'Medium',
	value             DOUBLE PRECISION NOT NULL DEFAULT 0,
	tags              TEXT[] NOT NULL DEFAULT '{}',
	follow_up_date    TIMESTAMPTZ,
	last_contacted_at TIMESTAMPTZ,
	notes             JSONB NOT NULL DEFAULT '[]',
	activity_log      JSONB NOT NULL DEFAULT '[]',
	created_by        TEXT NOT NULL,
	assigned_to       TEXT,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads (status);
CREATE INDEX IF NOT EXISTS idx_leads_follow_up ON leads (follow_up_date);
CREATE INDEX IF NOT EXISTS idx_leads_updated_at ON leads (updated_at DESC);
`

// NewDBConnection opens the pool and pings it before handing it out.
func NewDBConnection(connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// Migrate creates the tables the service needs when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
