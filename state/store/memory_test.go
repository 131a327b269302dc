package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/swap-engine/state"
	"github.com/warp/swap-engine/state/store"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, ok, err := m.Get(ctx, state.MapBalances, "0/alice")
	require.NoError(t, err)
	assert.False(t, ok, "unseen key should be missing")

	require.NoError(t, m.Set(ctx, state.MapBalances, "0/alice", "42"))
	v, ok, err := m.Get(ctx, state.MapBalances, "0/alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	require.NoError(t, m.Delete(ctx, state.MapBalances, "0/alice"))
	require.NoError(t, m.Delete(ctx, state.MapBalances, "0/alice"), "deleting twice is fine")
	_, ok, _ = m.Get(ctx, state.MapBalances, "0/alice")
	assert.False(t, ok)
}

func TestMemory_ScanIsPrefixedAndOrdered(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Set(ctx, state.MapBalances, state.Key("1", "bob"), "2"))
	require.NoError(t, m.Set(ctx, state.MapBalances, state.Key("1", "alice"), "1"))
	require.NoError(t, m.Set(ctx, state.MapBalances, state.Key("10", "carol"), "3"))
	require.NoError(t, m.Set(ctx, state.MapTotalSupply, "1", "3"))

	entries, err := m.Scan(ctx, state.MapBalances, "1/")
	require.NoError(t, err)
	assert.Equal(t, []state.Entry{
		{Key: "1/alice", Value: "1"},
		{Key: "1/bob", Value: "2"},
	}, entries)
}

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: A committed value
	// WHEN: A transaction writes and then fails
	// THEN: Every write of the failed transaction is undone

	ctx := context.Background()
	m := store.NewTxMemory()
	require.NoError(t, m.Set(ctx, state.MapBalances, "0/alice", "10"))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(st state.Store) error {
		require.NoError(t, st.Set(ctx, state.MapBalances, "0/alice", "0"))
		require.NoError(t, st.Set(ctx, state.MapBalances, "0/bob", "10"))
		require.NoError(t, st.Delete(ctx, state.MapBalances, "0/alice"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	v, ok, _ := m.Get(ctx, state.MapBalances, "0/alice")
	assert.True(t, ok)
	assert.Equal(t, "10", v)
	_, ok, _ = m.Get(ctx, state.MapBalances, "0/bob")
	assert.False(t, ok)
}

func TestTxMemory_CommitOnSuccess(t *testing.T) {
	ctx := context.Background()
	m := store.NewTxMemory()

	err := m.WithTx(ctx, func(st state.Store) error {
		if err := st.Set(ctx, state.MapSwapCount, state.Singleton, "1"); err != nil {
			return err
		}
		v, ok, err := st.Get(ctx, state.MapSwapCount, state.Singleton)
		require.NoError(t, err)
		assert.True(t, ok, "writes are visible inside the transaction")
		assert.Equal(t, "1", v)
		return nil
	})
	require.NoError(t, err)

	v, _, _ := m.Get(ctx, state.MapSwapCount, state.Singleton)
	assert.Equal(t, "1", v)
}
