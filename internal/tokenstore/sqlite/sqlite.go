// Package sqlite implements tokenstore.KV on an embedded SQLite database.
//
// modernc.org/sqlite is a pure Go translation of SQLite — no CGo, no C
// compiler, cross-compiles everywhere Go does. One file holds every edge
// session's credential rows, so a restart of the edge does not log every
// browser out.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements tokenstore.KV.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at path and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — several
	// edge sessions can refresh tokens at once.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS session_tokens (
			session_id TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, key)
		);
		CREATE INDEX IF NOT EXISTS idx_session_tokens_session
			ON session_tokens(session_id);
	`)
	if err != nil {
		return fmt.Errorf("creating session_tokens table: %w", err)
	}
	return nil
}

// Get returns the stored value for (sessionID, key). ok is false when no
// row exists.
func (db *DB) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM session_tokens WHERE session_id = ? AND key = ?`,
		sessionID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite: getting %s/%s: %w", sessionID, key, err)
	}
	return value, true, nil
}

// Set upserts the value for (sessionID, key).
func (db *DB) Set(ctx context.Context, sessionID, key, value string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO session_tokens (session_id, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (session_id, key)
		DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, sessionID, key, value)
	if err != nil {
		return fmt.Errorf("sqlite: setting %s/%s: %w", sessionID, key, err)
	}
	return nil
}

// Delete removes one key. Deleting a missing key is not an error.
func (db *DB) Delete(ctx context.Context, sessionID, key string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM session_tokens WHERE session_id = ? AND key = ?`,
		sessionID, key,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s/%s: %w", sessionID, key, err)
	}
	return nil
}

// DeleteAll removes every key stored for sessionID.
func (db *DB) DeleteAll(ctx context.Context, sessionID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM session_tokens WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing session %s: %w", sessionID, err)
	}
	return nil
}
