/*
ledger.go - Token ledger operations

PURPOSE:
  Book applies ledger operations against one state view and records the
  resulting events. Ledger wraps Book so that each public operation runs in
  its own transaction and publishes events only after commit.

WHY TWO TYPES?
  The swap engine needs to run several ledger steps (move tokens in, mint
  shares) inside ONE transaction together with a currency transfer. It binds
  a Book to its own transaction view. Standalone callers use Ledger and get
  one transaction per call.

CHECK-THEN-WRITE:
  Every Book method computes all new values (and every possible failure)
  before its first write. Combined with WithTx this means a failed call
  leaves no trace even on stores whose writes can fail midway.

PERSISTED STATE:
  asset_count                        -> next asset id
  balances     <asset>/<account>     -> Balance (deleted when zero)
  allowances   <asset>/<owner>/<spender> -> Balance (deleted when zero)
  total_supply <asset>               -> Balance

SEE ALSO:
  - types.go: Balance, AssetID, AccountID
  - state/store.go: Store/TxStore contract
  - swap/engine.go: Binds a Book to swap transactions
*/
package ledger

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/warp/swap-engine/event"
	"github.com/warp/swap-engine/state"
)

// =============================================================================
// BOOK - Ledger operations on a single state view
// =============================================================================

// Book applies ledger operations to st and records events into rec.
type Book struct {
	st  state.Store
	rec event.Recorder
}

// NewBook binds a Book to a state view. rec may be nil for read-only use.
func NewBook(st state.Store, rec event.Recorder) *Book {
	if rec == nil {
		rec = event.NewBuffer()
	}
	return &Book{st: st, rec: rec}
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// AssetCount returns how many asset ids have been issued (the next id).
func (b *Book) AssetCount(ctx context.Context) (uint64, error) {
	return readCounter(ctx, b.st, state.MapAssetCount)
}

// Exists reports whether id has been issued.
func (b *Book) Exists(ctx context.Context, id AssetID) (bool, error) {
	count, err := b.AssetCount(ctx)
	if err != nil {
		return false, err
	}
	return uint64(id) < count, nil
}

// BalanceOf returns who's balance of id (zero for unseen owners).
func (b *Book) BalanceOf(ctx context.Context, id AssetID, who AccountID) (Balance, error) {
	return readBalance(ctx, b.st, state.MapBalances, balanceKey(id, who))
}

// TotalSupply returns the supply of id.
func (b *Book) TotalSupply(ctx context.Context, id AssetID) (Balance, error) {
	return readBalance(ctx, b.st, state.MapTotalSupply, id.String())
}

// Allowance returns how much spender may move out of owner's balance of id.
func (b *Book) Allowance(ctx context.Context, id AssetID, owner, spender AccountID) (Balance, error) {
	return readBalance(ctx, b.st, state.MapAllowances, allowanceKey(id, owner, spender))
}

// Holders returns every non-zero balance of id, ordered by account.
func (b *Book) Holders(ctx context.Context, id AssetID) ([]Holding, error) {
	prefix := id.String() + "/"
	entries, err := b.st.Scan(ctx, state.MapBalances, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan holders of asset %s: %w", id, err)
	}
	holdings := make([]Holding, 0, len(entries))
	for _, e := range entries {
		bal, err := ParseBalance(e.Value)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, Holding{
			Account: AccountID(strings.TrimPrefix(e.Key, prefix)),
			Balance: bal,
		})
	}
	return holdings, nil
}

// -----------------------------------------------------------------------------
// Mutations
// -----------------------------------------------------------------------------

// CreateAsset issues the next asset id with initialSupply credited to owner.
func (b *Book) CreateAsset(ctx context.Context, owner AccountID, initialSupply Balance) (AssetID, error) {
	if err := owner.Validate(); err != nil {
		return 0, err
	}
	count, err := b.AssetCount(ctx)
	if err != nil {
		return 0, err
	}
	if count == math.MaxUint64 {
		return 0, ErrIDSpaceExhausted
	}
	id := AssetID(count)

	if err := writeBalance(ctx, b.st, state.MapBalances, balanceKey(id, owner), initialSupply); err != nil {
		return 0, err
	}
	if err := writeBalance(ctx, b.st, state.MapTotalSupply, id.String(), initialSupply); err != nil {
		return 0, err
	}
	if err := writeCounter(ctx, b.st, state.MapAssetCount, count+1); err != nil {
		return 0, err
	}

	b.rec.Record(AssetCreated{Asset: id, Owner: owner, Amount: initialSupply})
	return id, nil
}

// Mint credits amount to `to` and raises supply by the same amount.
func (b *Book) Mint(ctx context.Context, id AssetID, to AccountID, amount Balance) error {
	if err := to.Validate(); err != nil {
		return err
	}
	if err := b.requireAsset(ctx, id); err != nil {
		return err
	}

	bal, err := b.BalanceOf(ctx, id, to)
	if err != nil {
		return err
	}
	supply, err := b.TotalSupply(ctx, id)
	if err != nil {
		return err
	}
	newBal, err := bal.Add(amount)
	if err != nil {
		return err
	}
	newSupply, err := supply.Add(amount)
	if err != nil {
		return err
	}

	if err := writeBalance(ctx, b.st, state.MapBalances, balanceKey(id, to), newBal); err != nil {
		return err
	}
	return writeBalance(ctx, b.st, state.MapTotalSupply, id.String(), newSupply)
}

// Burn debits amount from `from` and lowers supply by the same amount.
func (b *Book) Burn(ctx context.Context, id AssetID, from AccountID, amount Balance) error {
	if err := from.Validate(); err != nil {
		return err
	}
	bal, err := b.BalanceOf(ctx, id, from)
	if err != nil {
		return err
	}
	if bal.LessThan(amount) {
		return &InsufficientFundsError{Asset: id, Account: from, Available: bal, Requested: amount}
	}
	supply, err := b.TotalSupply(ctx, id)
	if err != nil {
		return err
	}
	newBal, err := bal.Sub(amount)
	if err != nil {
		return err
	}
	// Supply >= any single balance while supply matches holdings; a failure here means corrupted state.
	newSupply, err := supply.Sub(amount)
	if err != nil {
		return fmt.Errorf("asset %s supply below holder balance: %w", id, err)
	}

	if err := writeBalance(ctx, b.st, state.MapBalances, balanceKey(id, from), newBal); err != nil {
		return err
	}
	return writeBalance(ctx, b.st, state.MapTotalSupply, id.String(), newSupply)
}

// Transfer moves amount of id from `from` to `to`.
// A transfer to self checks funds and changes nothing.
func (b *Book) Transfer(ctx context.Context, id AssetID, from, to AccountID, amount Balance) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	return b.move(ctx, id, from, to, amount)
}

// Approve ADDS amount to spender's allowance over owner's balance of id.
// Two approvals of a and b leave an allowance of a+b.
func (b *Book) Approve(ctx context.Context, id AssetID, owner, spender AccountID, amount Balance) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	if err := owner.Validate(); err != nil {
		return err
	}
	if err := spender.Validate(); err != nil {
		return err
	}
	if err := b.requireAsset(ctx, id); err != nil {
		return err
	}

	allowed, err := b.Allowance(ctx, id, owner, spender)
	if err != nil {
		return err
	}
	newAllowed, err := allowed.Add(amount)
	if err != nil {
		return err
	}
	if err := writeBalance(ctx, b.st, state.MapAllowances, allowanceKey(id, owner, spender), newAllowed); err != nil {
		return err
	}

	b.rec.Record(Approval{Asset: id, Owner: owner, Spender: spender, Amount: amount})
	return nil
}

// TransferFrom lets spender move amount of owner's id to `to`, consuming allowance.
// If the transfer fails the allowance is untouched.
func (b *Book) TransferFrom(ctx context.Context, id AssetID, spender, owner, to AccountID, amount Balance) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	if err := spender.Validate(); err != nil {
		return err
	}
	allowed, err := b.Allowance(ctx, id, owner, spender)
	if err != nil {
		return err
	}
	if allowed.LessThan(amount) {
		return &InsufficientAllowanceError{Asset: id, Owner: owner, Spender: spender, Allowed: allowed, Requested: amount}
	}
	remaining, err := allowed.Sub(amount)
	if err != nil {
		return err
	}

	if err := b.move(ctx, id, owner, to, amount); err != nil {
		return err
	}
	return writeBalance(ctx, b.st, state.MapAllowances, allowanceKey(id, owner, spender), remaining)
}

// Move is Transfer without the zero-amount rule, for engine-internal bookkeeping.
// Moving zero is a no-op.
func (b *Book) Move(ctx context.Context, id AssetID, from, to AccountID, amount Balance) error {
	if amount.IsZero() {
		return nil
	}
	return b.move(ctx, id, from, to, amount)
}

func (b *Book) move(ctx context.Context, id AssetID, from, to AccountID, amount Balance) error {
	if err := from.Validate(); err != nil {
		return err
	}
	if err := to.Validate(); err != nil {
		return err
	}
	if err := b.requireAsset(ctx, id); err != nil {
		return err
	}

	fromBal, err := b.BalanceOf(ctx, id, from)
	if err != nil {
		return err
	}
	if fromBal.LessThan(amount) {
		return &InsufficientFundsError{Asset: id, Account: from, Available: fromBal, Requested: amount}
	}

	if from != to {
		toBal, err := b.BalanceOf(ctx, id, to)
		if err != nil {
			return err
		}
		newFrom, err := fromBal.Sub(amount)
		if err != nil {
			return err
		}
		newTo, err := toBal.Add(amount)
		if err != nil {
			return err
		}
		if err := writeBalance(ctx, b.st, state.MapBalances, balanceKey(id, from), newFrom); err != nil {
			return err
		}
		if err := writeBalance(ctx, b.st, state.MapBalances, balanceKey(id, to), newTo); err != nil {
			return err
		}
	}

	b.rec.Record(Transfer{Asset: id, From: from, To: to, Amount: amount})
	return nil
}

func (b *Book) requireAsset(ctx context.Context, id AssetID) error {
	ok, err := b.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	return nil
}

// =============================================================================
// LEDGER - One transaction per operation
// =============================================================================

// Ledger runs every mutating operation as one atomic unit against a TxStore.
type Ledger struct {
	store state.TxStore
	sink  event.Sink
	now   func() time.Time
}

func NewLedger(store state.TxStore, sink event.Sink) *Ledger {
	if sink == nil {
		sink = event.Discard
	}
	return &Ledger{store: store, sink: sink, now: time.Now}
}

// run executes fn in a transaction and publishes its events after commit.
func (l *Ledger) run(ctx context.Context, fn func(*Book) error) error {
	buf := event.NewBuffer()
	err := l.store.WithTx(ctx, func(st state.Store) error {
		return fn(NewBook(st, buf))
	})
	if err != nil {
		return err
	}
	l.sink.Publish(ctx, buf.Seal(l.now()))
	return nil
}

func (l *Ledger) reader() *Book {
	return NewBook(l.store, nil)
}

func (l *Ledger) CreateAsset(ctx context.Context, owner AccountID, initialSupply Balance) (AssetID, error) {
	var id AssetID
	err := l.run(ctx, func(b *Book) error {
		var err error
		id, err = b.CreateAsset(ctx, owner, initialSupply)
		return err
	})
	return id, err
}

func (l *Ledger) Mint(ctx context.Context, id AssetID, to AccountID, amount Balance) error {
	return l.run(ctx, func(b *Book) error { return b.Mint(ctx, id, to, amount) })
}

func (l *Ledger) Burn(ctx context.Context, id AssetID, from AccountID, amount Balance) error {
	return l.run(ctx, func(b *Book) error { return b.Burn(ctx, id, from, amount) })
}

func (l *Ledger) Transfer(ctx context.Context, id AssetID, from, to AccountID, amount Balance) error {
	return l.run(ctx, func(b *Book) error { return b.Transfer(ctx, id, from, to, amount) })
}

func (l *Ledger) Approve(ctx context.Context, id AssetID, owner, spender AccountID, amount Balance) error {
	return l.run(ctx, func(b *Book) error { return b.Approve(ctx, id, owner, spender, amount) })
}

func (l *Ledger) TransferFrom(ctx context.Context, id AssetID, spender, owner, to AccountID, amount Balance) error {
	return l.run(ctx, func(b *Book) error { return b.TransferFrom(ctx, id, spender, owner, to, amount) })
}

func (l *Ledger) AssetCount(ctx context.Context) (uint64, error) {
	return l.reader().AssetCount(ctx)
}

func (l *Ledger) BalanceOf(ctx context.Context, id AssetID, who AccountID) (Balance, error) {
	return l.reader().BalanceOf(ctx, id, who)
}

func (l *Ledger) TotalSupply(ctx context.Context, id AssetID) (Balance, error) {
	return l.reader().TotalSupply(ctx, id)
}

func (l *Ledger) Allowance(ctx context.Context, id AssetID, owner, spender AccountID) (Balance, error) {
	return l.reader().Allowance(ctx, id, owner, spender)
}

func (l *Ledger) Holders(ctx context.Context, id AssetID) ([]Holding, error) {
	return l.reader().Holders(ctx, id)
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func balanceKey(id AssetID, who AccountID) string {
	return state.Key(id.String(), string(who))
}

func allowanceKey(id AssetID, owner, spender AccountID) string {
	return state.Key(id.String(), string(owner), string(spender))
}

func readBalance(ctx context.Context, st state.Store, m state.Map, key string) (Balance, error) {
	v, ok, err := st.Get(ctx, m, key)
	if err != nil {
		return Balance{}, fmt.Errorf("read %s[%s]: %w", m, key, err)
	}
	if !ok {
		return Zero, nil
	}
	return ParseBalance(v)
}

// writeBalance stores b, deleting the key when b is zero.
func writeBalance(ctx context.Context, st state.Store, m state.Map, key string, b Balance) error {
	var err error
	if b.IsZero() {
		err = st.Delete(ctx, m, key)
	} else {
		err = st.Set(ctx, m, key, b.String())
	}
	if err != nil {
		return fmt.Errorf("write %s[%s]: %w", m, key, err)
	}
	return nil
}

func readCounter(ctx context.Context, st state.Store, m state.Map) (uint64, error) {
	v, ok, err := st.Get(ctx, m, state.Singleton)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", m, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", m, err)
	}
	return n, nil
}

func writeCounter(ctx context.Context, st state.Store, m state.Map, n uint64) error {
	if err := st.Set(ctx, m, state.Singleton, strconv.FormatUint(n, 10)); err != nil {
		return fmt.Errorf("write %s: %w", m, err)
	}
	return nil
}

// ReadCounter and WriteCounter expose the counter encoding to other
// registries that keep their own id counters in the same store.
func ReadCounter(ctx context.Context, st state.Store, m state.Map) (uint64, error) {
	return readCounter(ctx, st, m)
}

func WriteCounter(ctx context.Context, st state.Store, m state.Map, n uint64) error {
	return writeCounter(ctx, st, m, n)
}
