package ledger_test

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/swap-engine/event"
	"github.com/warp/swap-engine/ledger"
	"github.com/warp/swap-engine/state"
	"github.com/warp/swap-engine/state/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*ledger.Ledger, *store.TxMemory, *event.MemorySink) {
	t.Helper()
	st := store.NewTxMemory()
	sink := event.NewMemorySink(0)
	return ledger.NewLedger(st, sink), st, sink
}

func bal(n uint64) ledger.Balance {
	return ledger.NewBalance(n)
}

func requireBalance(t *testing.T, l *ledger.Ledger, id ledger.AssetID, who ledger.AccountID, want uint64) {
	t.Helper()
	got, err := l.BalanceOf(context.Background(), id, who)
	require.NoError(t, err)
	assert.Equal(t, bal(want).String(), got.String(), "balance of %s in asset %s", who, id)
}

// requireSupplyInvariant checks that supply equals the sum of all balances.
func requireSupplyInvariant(t *testing.T, l *ledger.Ledger, id ledger.AssetID) {
	t.Helper()
	ctx := context.Background()
	holders, err := l.Holders(ctx, id)
	require.NoError(t, err)
	sum := ledger.Zero
	for _, h := range holders {
		sum, err = sum.Add(h.Balance)
		require.NoError(t, err)
	}
	supply, err := l.TotalSupply(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, supply.String(), sum.String(), "supply of asset %s must equal sum of balances", id)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestLedger_CreateAsset(t *testing.T) {
	// GIVEN: An empty ledger
	// WHEN: Account 1 creates an asset with supply 42
	// THEN: The asset gets id 0, supply 42, and account 1 holds all of it

	l, _, sink := newTestLedger(t)
	ctx := context.Background()

	id, err := l.CreateAsset(ctx, "1", bal(42))
	require.NoError(t, err)

	assert.Equal(t, ledger.AssetID(0), id)
	supply, err := l.TotalSupply(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "42", supply.String())
	requireBalance(t, l, id, "1", 42)

	count, err := l.AssetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, []string{"asset_created"}, sink.Kinds())
}

func TestLedger_CreateAsset_IdsNeverReused(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	seen := map[ledger.AssetID]bool{}
	for i := 0; i < 5; i++ {
		id, err := l.CreateAsset(ctx, "1", ledger.Zero)
		require.NoError(t, err)
		assert.False(t, seen[id], "id %s issued twice", id)
		seen[id] = true
	}
}

func TestLedger_CreateAsset_IDSpaceExhausted(t *testing.T) {
	l, st, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, state.MapAssetCount, state.Singleton, strconv.FormatUint(math.MaxUint64, 10)))

	_, err := l.CreateAsset(ctx, "1", bal(1))
	assert.ErrorIs(t, err, ledger.ErrIDSpaceExhausted)
}

func TestLedger_Transfer(t *testing.T) {
	// GIVEN: Account 1 holds 42 of asset 0
	// WHEN: Account 1 transfers 22 to account 2
	// THEN: Account 1 has 20, account 2 has 22

	l, _, sink := newTestLedger(t)
	ctx := context.Background()
	id, err := l.CreateAsset(ctx, "1", bal(42))
	require.NoError(t, err)

	require.NoError(t, l.Transfer(ctx, id, "1", "2", bal(22)))

	requireBalance(t, l, id, "1", 20)
	requireBalance(t, l, id, "2", 22)
	requireSupplyInvariant(t, l, id)
	assert.Equal(t, []string{"asset_created", "transfer"}, sink.Kinds())
}

func TestLedger_Transfer_Failures(t *testing.T) {
	l, _, sink := newTestLedger(t)
	ctx := context.Background()
	id, err := l.CreateAsset(ctx, "1", bal(42))
	require.NoError(t, err)

	assert.ErrorIs(t, l.Transfer(ctx, id, "1", "2", ledger.Zero), ledger.ErrZeroAmount)

	err = l.Transfer(ctx, id, "1", "2", bal(43))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	var fundsErr *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, "42", fundsErr.Available.String())

	assert.ErrorIs(t, l.Transfer(ctx, 7, "1", "2", bal(1)), ledger.ErrUnknownAsset)
	assert.ErrorIs(t, l.Transfer(ctx, id, "1", "a/b", bal(1)), ledger.ErrInvalidAccount)

	requireBalance(t, l, id, "1", 42)
	requireBalance(t, l, id, "2", 0)
	assert.Equal(t, []string{"asset_created"}, sink.Kinds(), "failed transfers emit nothing")
}

func TestLedger_Transfer_ToSelf(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	id, err := l.CreateAsset(ctx, "1", bal(42))
	require.NoError(t, err)

	require.NoError(t, l.Transfer(ctx, id, "1", "1", bal(42)))
	requireBalance(t, l, id, "1", 42)

	assert.ErrorIs(t, l.Transfer(ctx, id, "1", "1", bal(43)), ledger.ErrInsufficientFunds)
	requireSupplyInvariant(t, l, id)
}

func TestLedger_ApproveAndTransferFrom(t *testing.T) {
	// GIVEN: Account 1 holds 42 of asset 0
	// WHEN: Account 1 approves account 2 for 20 and account 2 moves 10 to account 3
	// THEN: Allowance is 10, account 1 has 32, account 3 has 10

	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	id, err := l.CreateAsset(ctx, "1", bal(42))
	require.NoError(t, err)

	require.NoError(t, l.Approve(ctx, id, "1", "2", bal(20)))
	require.NoError(t, l.TransferFrom(ctx, id, "2", "1", "3", bal(10)))

	allowed, err := l.Allowance(ctx, id, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "10", allowed.String())
	requireBalance(t, l, id, "1", 32)
	requireBalance(t, l, id, "3", 10)
	requireSupplyInvariant(t, l, id)
}

func TestLedger_Approve_IsAdditive(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	id, err := l.CreateAsset(ctx, "1", bal(42))
	require.NoError(t, err)

	require.NoError(t, l.Approve(ctx, id, "1", "2", bal(5)))
	require.NoError(t, l.Approve(ctx, id, "1", "2", bal(3)))

	allowed, err := l.Allowance(ctx, id, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "8", allowed.String(), "approvals add up rather than overwrite")

	assert.ErrorIs(t, l.Approve(ctx, id, "1", "2", ledger.Zero), ledger.ErrZeroAmount)
}

func TestLedger_Approve_Overflow(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	id, err := l.CreateAsset(ctx, "1", bal(1))
	require.NoError(t, err)

	require.NoError(t, l.Approve(ctx, id, "1", "2", ledger.MaxBalance()))
	assert.ErrorIs(t, l.Approve(ctx, id, "1", "2", bal(1)), ledger.ErrOverflow)

	allowed, err := l.Allowance(ctx, id, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, ledger.MaxBalance().String(), allowed.String())
}

func TestLedger_TransferFrom_Failures(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	id, err := l.CreateAsset(ctx, "1", bal(42))
	require.NoError(t, err)
	require.NoError(t, l.Approve(ctx, id, "1", "2", bal(100)))

	assert.ErrorIs(t, l.TransferFrom(ctx, id, "2", "1", "3", ledger.Zero), ledger.ErrZeroAmount)
	assert.ErrorIs(t, l.TransferFrom(ctx, id, "3", "1", "3", bal(1)), ledger.ErrInsufficientAllowance)

	// Allowance covers it but the owner does not: allowance must stay intact.
	err = l.TransferFrom(ctx, id, "2", "1", "3", bal(50))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	allowed, err := l.Allowance(ctx, id, "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "100", allowed.String())
	requireBalance(t, l, id, "1", 42)
}

func TestLedger_MintAndBurn(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	id, err := l.CreateAsset(ctx, "1", bal(10))
	require.NoError(t, err)

	require.NoError(t, l.Mint(ctx, id, "2", bal(5)))
	requireBalance(t, l, id, "2", 5)
	requireSupplyInvariant(t, l, id)

	require.NoError(t, l.Burn(ctx, id, "1", bal(10)))
	requireBalance(t, l, id, "1", 0)
	requireSupplyInvariant(t, l, id)

	assert.ErrorIs(t, l.Burn(ctx, id, "2", bal(6)), ledger.ErrInsufficientFunds)
	assert.ErrorIs(t, l.Mint(ctx, 9, "2", bal(1)), ledger.ErrUnknownAsset)

	supply, err := l.TotalSupply(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "5", supply.String())
}

func TestLedger_Mint_OverflowHasNoEffect(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	id, err := l.CreateAsset(ctx, "1", ledger.MaxBalance())
	require.NoError(t, err)

	// Account 2's own balance would fit, the supply would not.
	assert.ErrorIs(t, l.Mint(ctx, id, "2", bal(1)), ledger.ErrOverflow)
	requireBalance(t, l, id, "2", 0)
	requireSupplyInvariant(t, l, id)
}

func TestLedger_SupplyInvariant_RandomOperations(t *testing.T) {
	// GIVEN: Three assets and five accounts
	// WHEN: A long random mix of mint/burn/transfer/transfer-from runs (failures allowed)
	// THEN: Supply equals the sum of balances for every asset, and nothing is negative

	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	accounts := []ledger.AccountID{"a", "b", "c", "d", "e"}

	var ids []ledger.AssetID
	for i := 0; i < 3; i++ {
		id, err := l.CreateAsset(ctx, accounts[i], bal(1000))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		from := accounts[rng.Intn(len(accounts))]
		to := accounts[rng.Intn(len(accounts))]
		amount := bal(uint64(rng.Intn(300)))
		switch rng.Intn(5) {
		case 0:
			_ = l.Mint(ctx, id, to, amount)
		case 1:
			_ = l.Burn(ctx, id, from, amount)
		case 2:
			_ = l.Transfer(ctx, id, from, to, amount)
		case 3:
			_ = l.Approve(ctx, id, from, to, amount)
		case 4:
			_ = l.TransferFrom(ctx, id, to, from, accounts[rng.Intn(len(accounts))], amount)
		}
	}

	for _, id := range ids {
		requireSupplyInvariant(t, l, id)
	}
}
