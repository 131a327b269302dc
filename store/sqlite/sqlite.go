/*
Package sqlite provides a SQLite-backed implementation of state.TxStore.

PURPOSE:
  Persists the ledger, pool registry and currency balances in one SQLite
  database. Every named map of the state model is a slice of one kv table.

INTERFACES IMPLEMENTED:
  state.Store:   Get / Set / Delete / Scan
  state.TxStore: WithTx over a sql.Tx

KEY TABLES:
  kv: (map, key) -> value, plus the time of the last write

CONCURRENCY:
  Uses sync.Mutex to serialize writers. WithTx holds it for the whole
  transaction, and the transaction view queries through the sql.Tx only,
  never through the parent's locked methods.

  The pool is capped at one connection: ":memory:" databases are private to
  a connection, and SQLite allows a single writer anyway.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  st, err := sqlite.New("./data/swapd.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  l := ledger.NewLedger(st, sink)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - state/store.go: Interface definitions
  - state/store/memory.go: In-memory implementation for testing
  - store/postgres/postgres.go: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/swap-engine/state"
)

// Store implements state.TxStore using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		map TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (map, key)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// querier is the subset of *sql.DB and *sql.Tx the kv helpers need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// STATE STORE (state.Store interface)
// =============================================================================

func (s *Store) Get(ctx context.Context, m state.Map, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return get(ctx, s.db, m, key)
}

func (s *Store) Set(ctx context.Context, m state.Map, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return set(ctx, s.db, m, key, value, s.now())
}

func (s *Store) Delete(ctx context.Context, m state.Map, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return del(ctx, s.db, m, key)
}

func (s *Store) Scan(ctx context.Context, m state.Map, prefix string) ([]state.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scan(ctx, s.db, m, prefix)
}

// =============================================================================
// TRANSACTIONAL STORE (state.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. Any error from fn rolls
// the transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(st state.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, now: s.now}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx  *sql.Tx
	now func() time.Time
}

func (ts *txStore) Get(ctx context.Context, m state.Map, key string) (string, bool, error) {
	return get(ctx, ts.tx, m, key)
}

func (ts *txStore) Set(ctx context.Context, m state.Map, key, value string) error {
	return set(ctx, ts.tx, m, key, value, ts.now())
}

func (ts *txStore) Delete(ctx context.Context, m state.Map, key string) error {
	return del(ctx, ts.tx, m, key)
}

func (ts *txStore) Scan(ctx context.Context, m state.Map, prefix string) ([]state.Entry, error) {
	return scan(ctx, ts.tx, m, prefix)
}

// =============================================================================
// KV QUERIES
// =============================================================================

func get(ctx context.Context, q querier, m state.Map, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE map = ? AND key = ?`, string(m), key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func set(ctx context.Context, q querier, m state.Map, key, value string, at time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO kv (map, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (map, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(m), key, value, at.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func del(ctx context.Context, q querier, m state.Map, key string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM kv WHERE map = ? AND key = ?`, string(m), key)
	return err
}

// scan returns the entries of m whose key starts with prefix, ordered by key.
// Keys compare bytewise (BINARY collation), matching Go string order.
func scan(ctx context.Context, q querier, m state.Map, prefix string) ([]state.Entry, error) {
	query := `SELECT key, value FROM kv WHERE map = ? ORDER BY key`
	args := []any{string(m)}
	if prefix != "" {
		query = `SELECT key, value FROM kv WHERE map = ? AND instr(key, ?) = 1 ORDER BY key`
		args = append(args, prefix)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []state.Entry
	for rows.Next() {
		var e state.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM kv`)
	return err
}
