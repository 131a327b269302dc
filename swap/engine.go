/*
engine.go - Pool registry

PURPOSE:
  Engine keeps one constant-product pool per token. Each pool pairs the base
  currency with one ledger asset and issues its own share asset to liquidity
  providers. Reserves are the balances of the pool's reserve account; the
  registry only stores ids.

KEY CONCEPTS:
  Currency binder: the currency collaborator is created per transaction from
  the transaction's state view, so currency legs roll back with ledger legs.

  Step order: every operation checks what it can, applies ledger steps,
  and moves currency LAST. A failing currency transfer aborts the
  transaction and undoes the ledger steps.

  Events: buffered per operation, published after commit. A failed
  operation publishes nothing.

POOL LIFECYCLE:
  Empty (share supply 0) --add_liquidity--> Seeded
  Seeded --remove_liquidity (all shares)--> Empty

PERSISTED STATE:
  swap_count                -> next swap id
  token_to_swap <token>     -> swap id
  swaps         <swap>      -> JSON Pool

SEE ALSO:
  - pricing.go: InputPrice / OutputPrice
  - liquidity.go: AddLiquidity / RemoveLiquidity
  - trade.go: the four trades and their quotes
*/
package swap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/event"
	"github.com/warp/swap-engine/ledger"
	"github.com/warp/swap-engine/state"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Currency is the base-currency ledger pools hold reserves in.
type Currency interface {
	FreeBalance(ctx context.Context, who ledger.AccountID) (bank.Amount, error)
	Transfer(ctx context.Context, from, to ledger.AccountID, amount bank.Amount, req bank.ExistenceRequirement) error
}

// CurrencyBinder returns the Currency view for one state view.
type CurrencyBinder func(st state.Store) Currency

// BankCurrency binds a bank.Bank with the given existential deposit.
func BankCurrency(existentialDeposit bank.Amount) CurrencyBinder {
	return func(st state.Store) Currency {
		return bank.New(st, existentialDeposit)
	}
}

// Config wires an Engine to its collaborators.
type Config struct {
	Store    state.TxStore
	Currency CurrencyBinder
	Clock    Clock
	Sink     event.Sink
}

func (c *Config) validate() error {
	if c.Store == nil {
		return errors.New("swap: store is required")
	}
	if c.Currency == nil {
		return errors.New("swap: currency binder is required")
	}
	if c.Clock == nil {
		c.Clock = WallClock{}
	}
	if c.Sink == nil {
		c.Sink = event.Discard
	}
	return nil
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, now: time.Now}, nil
}

// op is the per-operation view: one state view, the ledger and currency bound
// to it, and the event buffer.
type op struct {
	st   state.Store
	book *ledger.Book
	cur  Currency
	rec  event.Recorder
}

func (e *Engine) bind(st state.Store, rec event.Recorder) *op {
	return &op{st: st, book: ledger.NewBook(st, rec), cur: e.cfg.Currency(st), rec: rec}
}

// run executes fn in one transaction and publishes its events after commit.
func (e *Engine) run(ctx context.Context, fn func(*op) error) error {
	buf := event.NewBuffer()
	err := e.cfg.Store.WithTx(ctx, func(st state.Store) error {
		return fn(e.bind(st, buf))
	})
	if err != nil {
		return err
	}
	e.cfg.Sink.Publish(ctx, buf.Seal(e.now()))
	return nil
}

// view is a read-only op against committed state.
func (e *Engine) view() *op {
	return e.bind(e.cfg.Store, nil)
}

// checkDeadline fails with ErrExpired once now has passed deadline.
func (e *Engine) checkDeadline(ctx context.Context, deadline uint64) error {
	if now := e.cfg.Clock.Now(ctx); deadline < now {
		return fmt.Errorf("%w: deadline %d, now %d", ErrExpired, deadline, now)
	}
	return nil
}

// =============================================================================
// REGISTRY
// =============================================================================

// CreatePool registers a pool for token, creating its zero-supply share asset.
func (e *Engine) CreatePool(ctx context.Context, creator ledger.AccountID, token ledger.AssetID) (Pool, error) {
	if err := creator.Validate(); err != nil {
		return Pool{}, err
	}
	var pool Pool
	err := e.run(ctx, func(o *op) error {
		var err error
		pool, err = o.createPool(ctx, creator, token)
		return err
	})
	return pool, err
}

func (o *op) createPool(ctx context.Context, creator ledger.AccountID, token ledger.AssetID) (Pool, error) {
	if _, found, err := o.swapForToken(ctx, token); err != nil {
		return Pool{}, err
	} else if found {
		return Pool{}, fmt.Errorf("%w: token %s", ErrSwapAlreadyExists, token)
	}
	exists, err := o.book.Exists(ctx, token)
	if err != nil {
		return Pool{}, err
	}
	if !exists {
		return Pool{}, fmt.Errorf("%w: %s", ledger.ErrUnknownAsset, token)
	}
	count, err := ledger.ReadCounter(ctx, o.st, state.MapSwapCount)
	if err != nil {
		return Pool{}, err
	}
	if count == math.MaxUint64 {
		return Pool{}, fmt.Errorf("swap id space: %w", ledger.ErrOverflow)
	}

	id := ID(count)
	account := ReserveAccount(id)
	share, err := o.book.CreateAsset(ctx, account, ledger.Zero)
	if err != nil {
		return Pool{}, err
	}
	pool := Pool{ID: id, TokenID: token, ShareID: share, Account: account, Creator: creator}

	raw, err := json.Marshal(pool)
	if err != nil {
		return Pool{}, fmt.Errorf("encode swap %s: %w", id, err)
	}
	if err := o.st.Set(ctx, state.MapSwaps, id.String(), string(raw)); err != nil {
		return Pool{}, fmt.Errorf("write swap %s: %w", id, err)
	}
	if err := o.st.Set(ctx, state.MapTokenToSwap, token.String(), id.String()); err != nil {
		return Pool{}, fmt.Errorf("index swap %s: %w", id, err)
	}
	if err := ledger.WriteCounter(ctx, o.st, state.MapSwapCount, count+1); err != nil {
		return Pool{}, err
	}

	o.rec.Record(PoolCreated{Swap: id, Token: token, Share: share, Account: account, Creator: creator})
	return pool, nil
}

// Pool returns the pool record for id.
func (e *Engine) Pool(ctx context.Context, id ID) (Pool, error) {
	return e.view().pool(ctx, id)
}

// PoolForToken returns the pool trading token.
func (e *Engine) PoolForToken(ctx context.Context, token ledger.AssetID) (Pool, error) {
	o := e.view()
	id, found, err := o.swapForToken(ctx, token)
	if err != nil {
		return Pool{}, err
	}
	if !found {
		return Pool{}, fmt.Errorf("%w: token %s", ErrNoSwapExists, token)
	}
	return o.pool(ctx, id)
}

// Pools lists every pool in id order.
func (e *Engine) Pools(ctx context.Context) ([]Pool, error) {
	return e.ReaderOn(e.cfg.Store).Pools(ctx)
}

// SwapCount returns the number of pools ever created.
func (e *Engine) SwapCount(ctx context.Context) (uint64, error) {
	return ledger.ReadCounter(ctx, e.cfg.Store, state.MapSwapCount)
}

// Reserves returns the current balances and derived state of pool id.
func (e *Engine) Reserves(ctx context.Context, id ID) (Reserves, error) {
	return e.ReaderOn(e.cfg.Store).Reserves(ctx, id)
}

// Reader answers pool queries against a single state view.
type Reader struct {
	o *op
}

// ReaderOn binds pool queries to st, usually a view handed out by WithTx so
// that several reads see one snapshot.
func (e *Engine) ReaderOn(st state.Store) Reader {
	return Reader{o: e.bind(st, nil)}
}

// Pools lists every pool in id order.
func (r Reader) Pools(ctx context.Context) ([]Pool, error) {
	count, err := ledger.ReadCounter(ctx, r.o.st, state.MapSwapCount)
	if err != nil {
		return nil, err
	}
	pools := make([]Pool, 0, count)
	for i := uint64(0); i < count; i++ {
		p, err := r.o.pool(ctx, ID(i))
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, nil
}

// Reserves returns the balances and derived state of pool id.
func (r Reader) Reserves(ctx context.Context, id ID) (Reserves, error) {
	pool, err := r.o.pool(ctx, id)
	if err != nil {
		return Reserves{}, err
	}
	res, err := r.o.reserves(ctx, pool)
	if err != nil {
		return Reserves{}, err
	}
	return Reserves{
		Swap:      id,
		Currency:  res.currency,
		Tokens:    res.tokens,
		Shares:    res.shares,
		State:     stateOf(res.shares),
		SpotPrice: SpotPrice(res.currency, res.tokens),
	}, nil
}

// =============================================================================
// OP HELPERS
// =============================================================================

func (o *op) swapForToken(ctx context.Context, token ledger.AssetID) (ID, bool, error) {
	v, ok, err := o.st.Get(ctx, state.MapTokenToSwap, token.String())
	if err != nil {
		return 0, false, fmt.Errorf("read swap index: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	id, err := ParseID(v)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (o *op) pool(ctx context.Context, id ID) (Pool, error) {
	v, ok, err := o.st.Get(ctx, state.MapSwaps, id.String())
	if err != nil {
		return Pool{}, fmt.Errorf("read swap %s: %w", id, err)
	}
	if !ok {
		return Pool{}, fmt.Errorf("%w: %s", ErrNoSwapExists, id)
	}
	var p Pool
	if err := json.Unmarshal([]byte(v), &p); err != nil {
		return Pool{}, fmt.Errorf("decode swap %s: %w", id, err)
	}
	return p, nil
}

type reserves struct {
	currency bank.Amount
	tokens   ledger.Balance
	shares   ledger.Balance
}

func (o *op) reserves(ctx context.Context, p Pool) (reserves, error) {
	currency, err := o.cur.FreeBalance(ctx, p.Account)
	if err != nil {
		return reserves{}, err
	}
	tokens, err := o.book.BalanceOf(ctx, p.TokenID, p.Account)
	if err != nil {
		return reserves{}, err
	}
	shares, err := o.book.TotalSupply(ctx, p.ShareID)
	if err != nil {
		return reserves{}, err
	}
	return reserves{currency: currency, tokens: tokens, shares: shares}, nil
}

// poolWithReserves loads a pool and its reserves in one step.
func (o *op) poolWithReserves(ctx context.Context, id ID) (Pool, reserves, error) {
	p, err := o.pool(ctx, id)
	if err != nil {
		return Pool{}, reserves{}, err
	}
	r, err := o.reserves(ctx, p)
	if err != nil {
		return Pool{}, reserves{}, err
	}
	return p, r, nil
}
