// Package sqlite implements the key-value store contract on SQLite, for
// single-machine installs that want durability without a server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ext-flex/extflex-engine/internal/infrastructure/persistence/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store is a SQLite-backed kv.Store. Change notification is in-process only.
type Store struct {
	db *sqlx.DB

	mu       sync.Mutex
	handlers map[int]kv.ChangeHandler
	nextID   int
	closed   bool
}

var _ kv.Store = (*Store)(nil)

// NewStore opens (or creates) the database file and ensures the schema.
// Use ":memory:" for an ephemeral database.
func NewStore(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// A single writer avoids SQLITE_BUSY under concurrent record updates.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ensure schema: %w", err)
	}

	return &Store{
		db:       db,
		handlers: make(map[int]kv.ChangeHandler),
	}, nil
}

// Get returns the document under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s.isClosed() {
		return nil, kv.ErrStoreClosed
	}

	var value []byte
	err := s.db.GetContext(ctx, &value, "SELECT value FROM documents WHERE key = ?", key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kv.ErrKeyNotFound
		}
		return nil, fmt.Errorf("sqlite: get %q: %w", key, err)
	}
	return value, nil
}

// Set upserts the document under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if s.isClosed() {
		return kv.ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (key, value, updated_at) VALUES (?, ?, strftime('%s','now'))
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite: set %q: %w", key, err)
	}
	s.notify(kv.Change{Key: key, Value: value})
	return nil
}

// Remove deletes the key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if s.isClosed() {
		return kv.ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("sqlite: remove %q: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notify(kv.Change{Key: key})
	}
	return nil
}

// Clear deletes every document.
func (s *Store) Clear(ctx context.Context) error {
	if s.isClosed() {
		return kv.ErrStoreClosed
	}

	var keys []string
	if err := s.db.SelectContext(ctx, &keys, "SELECT key FROM documents"); err != nil {
		return fmt.Errorf("sqlite: clear: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("sqlite: clear: %w", err)
	}
	for _, k := range keys {
		s.notify(kv.Change{Key: k})
	}
	return nil
}

// OnChange registers a change observer.
func (s *Store) OnChange(handler kv.ChangeHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.handlers[id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) notify(c kv.Change) {
	s.mu.Lock()
	handlers := make([]kv.ChangeHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(c)
	}
}
