package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/swap-engine/state"
	"github.com/warp/swap-engine/store/postgres"
)

// newTestStore connects to SWAPD_PG_DSN and starts from an empty table.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("SWAPD_PG_DSN")
	if dsn == "" {
		t.Skip("SWAPD_PG_DSN not set")
	}
	ctx := context.Background()
	st, err := postgres.NewStore(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, st.Reset(ctx))
	t.Cleanup(st.Close)
	return st
}

func TestNewStore_RequiresDSN(t *testing.T) {
	_, err := postgres.NewStore(context.Background(), "")
	assert.Error(t, err)
}

func TestStore_RoundTripAndScan(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.Set(ctx, state.MapBalances, "1/bob", "2"))
	require.NoError(t, st.Set(ctx, state.MapBalances, "1/alice", "1"))
	require.NoError(t, st.Set(ctx, state.MapBalances, "10/carol", "3"))
	require.NoError(t, st.Set(ctx, state.MapBalances, "1/alice", "5"))

	v, ok, err := st.Get(ctx, state.MapBalances, "1/alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "5", v)

	entries, err := st.Scan(ctx, state.MapBalances, "1/")
	require.NoError(t, err)
	assert.Equal(t, []state.Entry{{Key: "1/alice", Value: "5"}, {Key: "1/bob", Value: "2"}}, entries)

	require.NoError(t, st.Delete(ctx, state.MapBalances, "1/bob"))
	_, ok, err = st.Get(ctx, state.MapBalances, "1/bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_WithTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Set(ctx, state.MapBalances, "0/alice", "10"))

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx state.Store) error {
		require.NoError(t, tx.Set(ctx, state.MapBalances, "0/alice", "0"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	v, _, err := st.Get(ctx, state.MapBalances, "0/alice")
	require.NoError(t, err)
	assert.Equal(t, "10", v)
}
