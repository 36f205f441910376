package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// pgSchema is applied idempotently at startup. The status check
// constraint backs the conditional transition updates; partial indexes
// serve the queue view and guest reconnection lookups.
const pgSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'waiting'
		CHECK (status IN ('waiting', 'active', 'closed')),
	guest_username TEXT NOT NULL,
	guest_connection_id TEXT NOT NULL DEFAULT '',
	agent_id TEXT,
	customer_name TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	closed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS staff (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	online BOOLEAN NOT NULL DEFAULT FALSE,
	last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rooms_status_created
	ON rooms(status, created_at);
CREATE INDEX IF NOT EXISTS idx_rooms_guest_open
	ON rooms(guest_username) WHERE status IN ('waiting', 'active');
CREATE INDEX IF NOT EXISTS idx_rooms_agent_active
	ON rooms(agent_id) WHERE status = 'active';
`

// RunMigrations applies the schema to the PostgreSQL database.
func RunMigrations(databaseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, pgSchema)
	return err
}
