// Package postgres provides a PostgreSQL-backed state.TxStore.
//
// Every named map lives in one swapd_kv table keyed by (map, key). Each
// WithTx call runs in a SERIALIZABLE transaction, so concurrent operations
// from several processes either serialize or fail with a serialization error
// and leave no effect.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warp/swap-engine/state"
)

// Store implements state.TxStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn and creates the schema if needed.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS swapd_kv (
			map        TEXT NOT NULL,
			key        TEXT COLLATE "C" NOT NULL,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (map, key)
		)
	`)
	return err
}

// querier is what *pgxpool.Pool and pgx.Tx have in common.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) Get(ctx context.Context, m state.Map, key string) (string, bool, error) {
	return get(ctx, s.pool, m, key)
}

func (s *Store) Set(ctx context.Context, m state.Map, key, value string) error {
	return set(ctx, s.pool, m, key, value)
}

func (s *Store) Delete(ctx context.Context, m state.Map, key string) error {
	return del(ctx, s.pool, m, key)
}

func (s *Store) Scan(ctx context.Context, m state.Map, prefix string) ([]state.Entry, error) {
	return scan(ctx, s.pool, m, prefix)
}

// WithTx runs fn in a serializable transaction and commits if it returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(st state.Store) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{tx: tx}); err != nil {
		return classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// classify marks serialization failures and deadlocks as state.ErrConflict.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected) {
		return fmt.Errorf("%w: %w", state.ErrConflict, err)
	}
	return err
}

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM swapd_kv`)
	return err
}

type txStore struct {
	tx pgx.Tx
}

func (ts *txStore) Get(ctx context.Context, m state.Map, key string) (string, bool, error) {
	return get(ctx, ts.tx, m, key)
}

func (ts *txStore) Set(ctx context.Context, m state.Map, key, value string) error {
	return set(ctx, ts.tx, m, key, value)
}

func (ts *txStore) Delete(ctx context.Context, m state.Map, key string) error {
	return del(ctx, ts.tx, m, key)
}

func (ts *txStore) Scan(ctx context.Context, m state.Map, prefix string) ([]state.Entry, error) {
	return scan(ctx, ts.tx, m, prefix)
}

func get(ctx context.Context, q querier, m state.Map, key string) (string, bool, error) {
	var value string
	row := q.QueryRow(ctx, `SELECT value FROM swapd_kv WHERE map=$1 AND key=$2`, string(m), key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func set(ctx context.Context, q querier, m state.Map, key, value string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO swapd_kv (map, key, value, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (map, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, string(m), key, value)
	return err
}

func del(ctx context.Context, q querier, m state.Map, key string) error {
	_, err := q.Exec(ctx, `DELETE FROM swapd_kv WHERE map=$1 AND key=$2`, string(m), key)
	return err
}

func scan(ctx context.Context, q querier, m state.Map, prefix string) ([]state.Entry, error) {
	rows, err := q.Query(ctx, `
		SELECT key, value FROM swapd_kv
		WHERE map=$1 AND starts_with(key, $2)
		ORDER BY key
	`, string(m), prefix)
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
