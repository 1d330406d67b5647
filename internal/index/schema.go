// Package index provides the SQLite-backed chart index with optional FTS5 search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS charts (
	path        TEXT PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL DEFAULT '',
	owner       TEXT NOT NULL DEFAULT '',
	start_year  INTEGER NOT NULL DEFAULT 0,
	stop_year   INTEGER NOT NULL DEFAULT 0,
	savings     INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS moments (
	chart_id TEXT NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
	id       TEXT NOT NULL,
	name     TEXT NOT NULL DEFAULT '',
	year     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (chart_id, id)
);

CREATE TABLE IF NOT EXISTS streams (
	chart_id        TEXT NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
	id              TEXT NOT NULL,
	ordinal         INTEGER NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	amount_per_yr   INTEGER NOT NULL DEFAULT 0,
	color           TEXT NOT NULL DEFAULT '',
	boundary        TEXT NOT NULL DEFAULT '',
	start_moment_id TEXT NOT NULL DEFAULT '',
	stop_moment_id  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (chart_id, id)
);

CREATE INDEX IF NOT EXISTS idx_charts_owner ON charts(owner, updated_at);
CREATE INDEX IF NOT EXISTS idx_streams_start_moment ON streams(chart_id, start_moment_id);
CREATE INDEX IF NOT EXISTS idx_streams_stop_moment ON streams(chart_id, stop_moment_id);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
