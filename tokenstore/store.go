// Package tokenstore persists small per-scope values such as the admin bearer
// token. Each browser session and the CLI get their own scope.
package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// TokenKey is the key under which the bearer token is stored
const TokenKey = "token"

// UserKey holds the display name of the logged-in admin
const UserKey = "user"

// CLIScope is the scope used by command line invocations
const CLIScope = "cli"

// SessionScope returns the scope of a browser session
func SessionScope(sessionID string) string {
	return "session:" + sessionID
}

// Store is a sqlite-backed key/value table partitioned by scope
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the store at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging state database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// OpenMemory creates an in-memory store, used by tests
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: ":memory:"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    scope TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (scope, key)
);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database location
func (s *Store) Path() string {
	return s.path
}

// Get returns the value for key in scope. A missing key yields "" and no error.
func (s *Store) Get(ctx context.Context, scope, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE scope = ? AND key = ?`, scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s/%s: %w", scope, key, err)
	}
	return value, nil
}

// Set writes value for key in scope, replacing any previous value
func (s *Store) Set(ctx context.Context, scope, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (scope, key, value, updated_at) VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		scope, key, value)
	if err != nil {
		return fmt.Errorf("writing %s/%s: %w", scope, key, err)
	}
	return nil
}

// Delete removes key from scope. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, scope, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE scope = ? AND key = ?`, scope, key); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", scope, key, err)
	}
	return nil
}

// DropScope removes every key of scope, used when a session expires
func (s *Store) DropScope(ctx context.Context, scope string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("dropping scope %s: %w", scope, err)
	}
	return nil
}

// Scope binds the store to one scope
func (s *Store) Scope(scope string) *Scoped {
	return &Scoped{store: s, scope: scope}
}

// Scoped is a Store view limited to one scope. It satisfies
// apiclient.TokenSource.
type Scoped struct {
	store *Store
	scope string
}

// Name returns the scope identifier
func (s *Scoped) Name() string {
	return s.scope
}

// Token returns the stored bearer token, or "" when logged out
func (s *Scoped) Token(ctx context.Context) (string, error) {
	return s.store.Get(ctx, s.scope, TokenKey)
}

// SetToken persists the bearer token
func (s *Scoped) SetToken(ctx context.Context, token string) error {
	return s.store.Set(ctx, s.scope, TokenKey, token)
}

// ClearToken forgets the bearer token
func (s *Scoped) ClearToken(ctx context.Context) error {
	return s.store.Delete(ctx, s.scope, TokenKey)
}

// Value returns the value stored under key
func (s *Scoped) Value(ctx context.Context, key string) (string, error) {
	return s.store.Get(ctx, s.scope, key)
}

// SetValue stores value under key
func (s *Scoped) SetValue(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.scope, key, value)
}

// Clear removes every key of the scope
func (s *Scoped) Clear(ctx context.Context) error {
	return s.store.DropScope(ctx, s.scope)
}
