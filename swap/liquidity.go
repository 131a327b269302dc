package swap

import (
	"context"
	"fmt"

	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/ledger"
)

// AddLiquidity deposits currency and tokens into a pool and mints shares to caller.
//
// An Empty pool takes all of req.Currency and req.MaxTokens and mints shares
// equal to its resulting currency reserve. A Seeded pool takes tokens in
// proportion to its reserves and mints shares in proportion to its supply.
func (e *Engine) AddLiquidity(ctx context.Context, caller ledger.AccountID, req AddLiquidityRequest) (LiquidityReceipt, error) {
	if err := e.checkDeadline(ctx, req.Deadline); err != nil {
		return LiquidityReceipt{}, err
	}
	if req.MaxTokens.IsZero() {
		return LiquidityReceipt{}, ErrZeroTokens
	}
	if req.Currency == 0 {
		return LiquidityReceipt{}, fmt.Errorf("%w: currency", ledger.ErrZeroAmount)
	}

	var receipt LiquidityReceipt
	err := e.run(ctx, func(o *op) error {
		var err error
		receipt, err = o.addLiquidity(ctx, caller, req)
		return err
	})
	return receipt, err
}

func (o *op) addLiquidity(ctx context.Context, caller ledger.AccountID, req AddLiquidityRequest) (LiquidityReceipt, error) {
	pool, r, err := o.poolWithReserves(ctx, req.Swap)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	currency := Convert(req.Currency)

	var tokens, shares ledger.Balance
	switch stateOf(r.shares) {
	case Empty:
		tokens = req.MaxTokens
		// Shares equal the reserve's currency balance after the deposit.
		if shares, err = Convert(r.currency).Add(currency); err != nil {
			return LiquidityReceipt{}, err
		}
	case Seeded:
		if req.MinShares.IsZero() {
			return LiquidityReceipt{}, ErrRequestedZeroLiquidity
		}
		reserve := Convert(r.currency)
		if tokens, err = currency.MulDiv(r.tokens, reserve); err != nil {
			return LiquidityReceipt{}, err
		}
		if shares, err = currency.MulDiv(r.shares, reserve); err != nil {
			return LiquidityReceipt{}, err
		}
		if tokens.GreaterThan(req.MaxTokens) {
			return LiquidityReceipt{}, slippage(ErrTooManyTokens, tokens, req.MaxTokens)
		}
		if shares.LessThan(req.MinShares) {
			return LiquidityReceipt{}, slippage(ErrTooLowLiquidity, shares, req.MinShares)
		}
	}

	if err := o.book.Move(ctx, pool.TokenID, caller, pool.Account, tokens); err != nil {
		return LiquidityReceipt{}, err
	}
	if err := o.book.Mint(ctx, pool.ShareID, caller, shares); err != nil {
		return LiquidityReceipt{}, err
	}
	if err := o.cur.Transfer(ctx, caller, pool.Account, req.Currency, bank.KeepAlive); err != nil {
		return LiquidityReceipt{}, err
	}

	o.rec.Record(LiquidityAdded{Swap: pool.ID, Provider: caller, Currency: req.Currency, Tokens: tokens, Shares: shares})
	return LiquidityReceipt{Swap: pool.ID, Currency: req.Currency, Tokens: tokens, Shares: shares}, nil
}

// RemoveLiquidity burns shares and pays caller a proportional slice of both reserves.
func (e *Engine) RemoveLiquidity(ctx context.Context, caller ledger.AccountID, req RemoveLiquidityRequest) (LiquidityReceipt, error) {
	if err := e.checkDeadline(ctx, req.Deadline); err != nil {
		return LiquidityReceipt{}, err
	}
	if req.Shares.IsZero() {
		return LiquidityReceipt{}, ErrBurnZeroShares
	}

	var receipt LiquidityReceipt
	err := e.run(ctx, func(o *op) error {
		var err error
		receipt, err = o.removeLiquidity(ctx, caller, req)
		return err
	})
	return receipt, err
}

func (o *op) removeLiquidity(ctx context.Context, caller ledger.AccountID, req RemoveLiquidityRequest) (LiquidityReceipt, error) {
	pool, r, err := o.poolWithReserves(ctx, req.Swap)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	if r.shares.IsZero() {
		return LiquidityReceipt{}, fmt.Errorf("%w: swap %s", ErrNoLiquidity, pool.ID)
	}

	currencyOut, err := req.Shares.MulDiv(Convert(r.currency), r.shares)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	currency, err := Unconvert(currencyOut)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	tokens, err := req.Shares.MulDiv(r.tokens, r.shares)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	if currency < req.MinCurrency {
		return LiquidityReceipt{}, slippage(ErrNotEnoughCurrency, currency, req.MinCurrency)
	}
	if tokens.LessThan(req.MinTokens) {
		return LiquidityReceipt{}, slippage(ErrNotEnoughTokens, tokens, req.MinTokens)
	}

	if err := o.book.Burn(ctx, pool.ShareID, caller, req.Shares); err != nil {
		return LiquidityReceipt{}, err
	}
	if err := o.book.Move(ctx, pool.TokenID, pool.Account, caller, tokens); err != nil {
		return LiquidityReceipt{}, err
	}
	if err := o.cur.Transfer(ctx, pool.Account, caller, currency, bank.AllowDeath); err != nil {
		return LiquidityReceipt{}, err
	}

	o.rec.Record(LiquidityRemoved{Swap: pool.ID, Provider: caller, Currency: currency, Tokens: tokens, Shares: req.Shares})
	return LiquidityReceipt{Swap: pool.ID, Currency: currency, Tokens: tokens, Shares: req.Shares}, nil
}
