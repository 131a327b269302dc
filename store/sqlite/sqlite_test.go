package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/event"
	"github.com/warp/swap-engine/ledger"
	"github.com/warp/swap-engine/state"
	"github.com/warp/swap-engine/store/sqlite"
	"github.com/warp/swap-engine/swap"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, ok, err := st.Get(ctx, state.MapBalances, "0/alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Set(ctx, state.MapBalances, "0/alice", "42"))
	require.NoError(t, st.Set(ctx, state.MapBalances, "0/alice", "43"), "set overwrites")
	v, ok, err := st.Get(ctx, state.MapBalances, "0/alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "43", v)

	_, ok, err = st.Get(ctx, state.MapAllowances, "0/alice")
	require.NoError(t, err)
	assert.False(t, ok, "maps do not share keys")

	require.NoError(t, st.Delete(ctx, state.MapBalances, "0/alice"))
	_, ok, err = st.Get(ctx, state.MapBalances, "0/alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Scan(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Set(ctx, state.MapBalances, "1/bob", "2"))
	require.NoError(t, st.Set(ctx, state.MapBalances, "1/alice", "1"))
	require.NoError(t, st.Set(ctx, state.MapBalances, "10/carol", "3"))

	entries, err := st.Scan(ctx, state.MapBalances, "1/")
	require.NoError(t, err)
	assert.Equal(t, []state.Entry{{Key: "1/alice", Value: "1"}, {Key: "1/bob", Value: "2"}}, entries)

	all, err := st.Scan(ctx, state.MapBalances, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_WithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A committed value
	// WHEN: A transaction overwrites it, adds a key, then fails
	// THEN: Neither write survives

	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Set(ctx, state.MapBalances, "0/alice", "10"))

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx state.Store) error {
		require.NoError(t, tx.Set(ctx, state.MapBalances, "0/alice", "0"))
		require.NoError(t, tx.Set(ctx, state.MapBalances, "0/bob", "10"))

		v, _, err := tx.Get(ctx, state.MapBalances, "0/bob")
		require.NoError(t, err)
		assert.Equal(t, "10", v, "the transaction sees its own writes")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	v, _, err := st.Get(ctx, state.MapBalances, "0/alice")
	require.NoError(t, err)
	assert.Equal(t, "10", v)
	_, ok, err := st.Get(ctx, state.MapBalances, "0/bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "swapd.db")

	st, err := sqlite.New(path)
	require.NoError(t, err)
	l := ledger.NewLedger(st, event.Discard)
	id, err := l.CreateAsset(ctx, "1", ledger.NewBalance(42))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	got, err := ledger.NewLedger(reopened, event.Discard).BalanceOf(ctx, id, "1")
	require.NoError(t, err)
	assert.Equal(t, "42", got.String())
}

func TestStore_SwapRollsBackOnSQLite(t *testing.T) {
	// GIVEN: A pool on SQLite and a trader holding exactly the currency it sells
	// WHEN: The currency leg fails on KeepAlive after the token payout
	// THEN: The sql transaction rolls the payout back

	ctx := context.Background()
	st := newTestStore(t)
	b := bank.New(st, 1)
	require.NoError(t, b.Deposit(ctx, "1", 10_000))
	require.NoError(t, b.Deposit(ctx, "2", 300))

	eng, err := swap.New(swap.Config{Store: st, Currency: swap.BankCurrency(1), Clock: swap.NewManualClock(0)})
	require.NoError(t, err)
	l := ledger.NewLedger(st, event.Discard)
	token, err := l.CreateAsset(ctx, "1", ledger.NewBalance(42))
	require.NoError(t, err)
	pool, err := eng.CreatePool(ctx, "1", token)
	require.NoError(t, err)
	_, err = eng.AddLiquidity(ctx, "1", swap.AddLiquidityRequest{
		Swap: pool.ID, Currency: 420, MaxTokens: ledger.NewBalance(42), Deadline: 10,
	})
	require.NoError(t, err)

	_, err = eng.CurrencyToTokensInput(ctx, "2", swap.CurrencyToTokensInputRequest{
		Swap: pool.ID, Currency: 300, MinTokens: ledger.NewBalance(1), Deadline: 10,
	})
	assert.ErrorIs(t, err, bank.ErrKeepAlive)

	got, err := l.BalanceOf(ctx, token, "2")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
	r, err := eng.Reserves(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(420), r.Currency)
	assert.Equal(t, "42", r.Tokens.String())
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Set(ctx, state.MapSwapCount, state.Singleton, "3"))

	require.NoError(t, st.Reset(ctx))

	_, ok, err := st.Get(ctx, state.MapSwapCount, state.Singleton)
	require.NoError(t, err)
	assert.False(t, ok)
}
