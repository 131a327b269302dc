/*
Package state defines the key/value contract the ledger and swap engine persist through.

PURPOSE:
  The core only needs get/set/delete on a handful of named maps. How a key
  maps to durable bytes is the store's business. Different implementations
  can use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  Store:   Named-map reads and writes
  TxStore: Runs a function against a Store view atomically (commit or rollback)

ATOMIC OPERATIONS:
  Every public ledger or swap operation runs inside WithTx. A swap that moves
  currency in, moves tokens in and mints shares either applies all three
  writes or none of them. The core never relies on the caller to clean up.

KEYS:
  Keys are plain strings. Composite keys are joined with "/" (see Key),
  which is why account ids may not contain "/".

IMPLEMENTATIONS:
  - state/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go: SQLite
  - store/postgres/postgres.go: PostgreSQL

SEE ALSO:
  - ledger/ledger.go: Token ledger built on Store
  - swap/engine.go: Pool registry built on TxStore
*/
package state

import (
	"context"
	"errors"
	"strings"
)

// ErrConflict reports a transaction that lost to a concurrent one and left no
// effect. The operation may be retried.
var ErrConflict = errors.New("state: transaction conflict")

// =============================================================================
// NAMED MAPS
// =============================================================================

// Map names one logical map of the persisted state.
type Map string

const (
	MapAssetCount       Map = "asset_count"
	MapBalances         Map = "balances"
	MapAllowances       Map = "allowances"
	MapTotalSupply      Map = "total_supply"
	MapSwapCount        Map = "swap_count"
	MapTokenToSwap      Map = "token_to_swap"
	MapSwaps            Map = "swaps"
	MapCurrencyBalances Map = "currency_balances"
	MapCurrencyIssuance Map = "currency_issuance"
)

// Singleton is the key used by maps that hold a single value (counters).
const Singleton = ""

// Key joins composite key parts with "/".
func Key(parts ...string) string {
	return strings.Join(parts, "/")
}

// Entry is one key/value pair returned by Scan.
type Entry struct {
	Key   string
	Value string
}

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes named maps.
// Get on a missing key returns ok=false and no error.
type Store interface {
	Get(ctx context.Context, m Map, key string) (value string, ok bool, err error)

	Set(ctx context.Context, m Map, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, m Map, key string) error

	// Scan returns entries of m whose key starts with prefix, ordered by key.
	Scan(ctx context.Context, m Map, prefix string) ([]Entry, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the view is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
