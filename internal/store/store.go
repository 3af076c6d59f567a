package store

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/syncstore/internal/schema"
)

// Store provides single-writer SQLite storage for syncstore tables.
//
// Thread-safety model:
//   - Begin/MarkSuccessful/End/YieldIfContended: Begin may be called
//     from any goroutine; the primitives between Begin and End must be
//     called by the goroutine that owns the open transaction.
//   - Insert/Update/Delete: owner-only, require an open transaction.
//   - Read helpers: safe from any goroutine.
type Store struct {
	db    *sql.DB
	idgen IDGenerator

	// writeLock is the writer lock (buffered channel semaphore, so
	// acquisition can respect context cancellation). waiters counts
	// goroutines blocked on it, which is the contention signal for
	// YieldIfContended.
	writeLock chan struct{}
	waiters   atomic.Int32

	// active is the currently open transaction. Mutated only while
	// holding writeLock.
	active *activeTx
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the row ID generator.
// Tests use a deterministic sequence; production defaults to UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.idgen = g
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas automatically; table DDL is applied
// separately via ApplySchema. Idempotent - safe to call on an
// existing database.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection keeps
	// the writer lock and the sql.Tx on the same physical handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{
		db:        db,
		idgen:     UUIDv7Generator{},
		writeLock: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ApplySchema creates the given tables if they do not exist.
// Idempotent: the generated DDL uses IF NOT EXISTS throughout.
func (s *Store) ApplySchema(specs []schema.TableSpec) error {
	ddl, err := schema.AllDDL(specs)
	if err != nil {
		return fmt.Errorf("render schema: %w", err)
	}
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
