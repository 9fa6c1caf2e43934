// Package routestore provides the SQLite-backed authoritative route store.
package routestore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS routes (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL DEFAULT '',
	author               TEXT NOT NULL DEFAULT '',
	parent_route_id      TEXT NOT NULL DEFAULT '',
	waypoints            TEXT NOT NULL DEFAULT '[]',
	path                 TEXT NOT NULL DEFAULT '[]',
	color                TEXT NOT NULL DEFAULT '',
	score                INTEGER NOT NULL DEFAULT 0,
	votes                INTEGER NOT NULL DEFAULT 0,
	created_at           INTEGER NOT NULL DEFAULT 0,
	last_refined_at      INTEGER NOT NULL DEFAULT 0,
	active_refinement_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS refinements (
	route_id    TEXT NOT NULL,
	id          TEXT NOT NULL,
	contributor TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL DEFAULT 0,
	score       INTEGER NOT NULL DEFAULT 0,
	votes       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (route_id, id)
);

CREATE INDEX IF NOT EXISTS idx_refinements_route ON refinements(route_id, created_at);
`

// Store wraps a sql.DB with route operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("routestore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("routestore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("routestore: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
