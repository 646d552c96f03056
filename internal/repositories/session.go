// package repositories implements persistence for session-scoped state.
package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// SessionRepository implements [services.SessionStore] on SQLite.
//
// It holds exactly two well-known keys: the PKCE code verifier (ephemeral,
// deleted after the exchange) and the access token (survives restarts, cleared
// on logout or detected expiry). Writes are idempotent upserts.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a [SessionRepository] and ensures its schema.
func NewSessionRepository(db *sql.DB) (*SessionRepository, error) {
	r := &SessionRepository{db: db}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SessionRepository) init() error {
	query := `
		CREATE TABLE IF NOT EXISTS session (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create session table: %w", err)
	}

	return nil
}

// Get retrieves a session value by key. A missing key returns "" without error.
func (r *SessionRepository) Get(key string) (string, error) {
	query := `SELECT value FROM session WHERE key = ?`

	var value string
	err := r.db.QueryRow(query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session key %s: %w", key, err)
	}

	return value, nil
}

// Put stores a session value, replacing any previous value for the key.
func (r *SessionRepository) Put(key, value string) error {
	query := `
		INSERT INTO session (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to store session key %s: %w", key, err)
	}

	return nil
}

// Delete removes a session value. Deleting an absent key is not an error.
func (r *SessionRepository) Delete(key string) error {
	query := `DELETE FROM session WHERE key = ?`

	if _, err := r.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete session key %s: %w", key, err)
	}

	return nil
}
