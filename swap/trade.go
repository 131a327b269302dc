package swap

import (
	"context"

	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/ledger"
)

// =============================================================================
// TRADES
// =============================================================================
//
// The caller always pays the input leg and the recipient always receives the
// output leg. Each trade requires both its amount and its slippage bound to
// be non-zero.

// CurrencyToTokensInput sells exactly req.Currency for at least req.MinTokens.
func (e *Engine) CurrencyToTokensInput(ctx context.Context, caller ledger.AccountID, req CurrencyToTokensInputRequest) (Receipt, error) {
	if err := e.checkTrade(ctx, req.Deadline, noCurrency(req.Currency == 0), noTokens(req.MinTokens.IsZero())); err != nil {
		return Receipt{}, err
	}
	recipient := recipientOr(req.Recipient, caller)

	var receipt Receipt
	err := e.run(ctx, func(o *op) error {
		pool, r, err := o.poolWithReserves(ctx, req.Swap)
		if err != nil {
			return err
		}
		bought, err := InputPrice(Convert(req.Currency), Convert(r.currency), r.tokens)
		if err != nil {
			return err
		}
		if bought.LessThan(req.MinTokens) {
			return slippage(ErrNotEnoughTokens, bought, req.MinTokens)
		}
		receipt = Receipt{Swap: pool.ID, Trader: caller, Recipient: recipient, Currency: req.Currency, Tokens: bought}
		return o.buyTokens(ctx, pool, receipt)
	})
	return receipt, err
}

// CurrencyToTokensOutput buys exactly req.Tokens for at most req.MaxCurrency.
func (e *Engine) CurrencyToTokensOutput(ctx context.Context, caller ledger.AccountID, req CurrencyToTokensOutputRequest) (Receipt, error) {
	if err := e.checkTrade(ctx, req.Deadline, noTokens(req.Tokens.IsZero()), noCurrency(req.MaxCurrency == 0)); err != nil {
		return Receipt{}, err
	}
	recipient := recipientOr(req.Recipient, caller)

	var receipt Receipt
	err := e.run(ctx, func(o *op) error {
		pool, r, err := o.poolWithReserves(ctx, req.Swap)
		if err != nil {
			return err
		}
		cost, err := OutputPrice(req.Tokens, Convert(r.currency), r.tokens)
		if err != nil {
			return err
		}
		sold, err := Unconvert(cost)
		if err != nil {
			return err
		}
		if sold > req.MaxCurrency {
			return slippage(ErrTooExpensiveCurrency, sold, req.MaxCurrency)
		}
		receipt = Receipt{Swap: pool.ID, Trader: caller, Recipient: recipient, Currency: sold, Tokens: req.Tokens}
		return o.buyTokens(ctx, pool, receipt)
	})
	return receipt, err
}

// TokensToCurrencyInput sells exactly req.Tokens for at least req.MinCurrency.
func (e *Engine) TokensToCurrencyInput(ctx context.Context, caller ledger.AccountID, req TokensToCurrencyInputRequest) (Receipt, error) {
	if err := e.checkTrade(ctx, req.Deadline, noTokens(req.Tokens.IsZero()), noCurrency(req.MinCurrency == 0)); err != nil {
		return Receipt{}, err
	}
	recipient := recipientOr(req.Recipient, caller)

	var receipt Receipt
	err := e.run(ctx, func(o *op) error {
		pool, r, err := o.poolWithReserves(ctx, req.Swap)
		if err != nil {
			return err
		}
		out, err := InputPrice(req.Tokens, r.tokens, Convert(r.currency))
		if err != nil {
			return err
		}
		bought, err := Unconvert(out)
		if err != nil {
			return err
		}
		if bought < req.MinCurrency {
			return slippage(ErrNotEnoughCurrency, bought, req.MinCurrency)
		}
		receipt = Receipt{Swap: pool.ID, Trader: caller, Recipient: recipient, Currency: bought, Tokens: req.Tokens}
		return o.sellTokens(ctx, pool, receipt)
	})
	return receipt, err
}

// TokensToCurrencyOutput buys exactly req.Currency for at most req.MaxTokens.
func (e *Engine) TokensToCurrencyOutput(ctx context.Context, caller ledger.AccountID, req TokensToCurrencyOutputRequest) (Receipt, error) {
	if err := e.checkTrade(ctx, req.Deadline, noTokens(req.MaxTokens.IsZero()), noCurrency(req.Currency == 0)); err != nil {
		return Receipt{}, err
	}
	recipient := recipientOr(req.Recipient, caller)

	var receipt Receipt
	err := e.run(ctx, func(o *op) error {
		pool, r, err := o.poolWithReserves(ctx, req.Swap)
		if err != nil {
			return err
		}
		sold, err := OutputPrice(Convert(req.Currency), r.tokens, Convert(r.currency))
		if err != nil {
			return err
		}
		if sold.GreaterThan(req.MaxTokens) {
			return slippage(ErrTooExpensiveTokens, sold, req.MaxTokens)
		}
		receipt = Receipt{Swap: pool.ID, Trader: caller, Recipient: recipient, Currency: req.Currency, Tokens: sold}
		return o.sellTokens(ctx, pool, receipt)
	})
	return receipt, err
}

// zeroCheck is one trade amount that must be set, and the error if it is not.
type zeroCheck struct {
	unset bool
	err   error
}

func noCurrency(unset bool) zeroCheck { return zeroCheck{unset: unset, err: ErrNoCurrencySwapped} }
func noTokens(unset bool) zeroCheck   { return zeroCheck{unset: unset, err: ErrNoTokensSwapped} }

// checkTrade checks the deadline, then reports the first unset amount in the
// order given.
func (e *Engine) checkTrade(ctx context.Context, deadline uint64, checks ...zeroCheck) error {
	if err := e.checkDeadline(ctx, deadline); err != nil {
		return err
	}
	for _, c := range checks {
		if c.unset {
			return c.err
		}
	}
	return nil
}

func recipientOr(recipient, caller ledger.AccountID) ledger.AccountID {
	if recipient == "" {
		return caller
	}
	return recipient
}

// buyTokens pays tokens out of the reserve and takes currency from the trader.
func (o *op) buyTokens(ctx context.Context, pool Pool, t Receipt) error {
	if err := o.book.Move(ctx, pool.TokenID, pool.Account, t.Recipient, t.Tokens); err != nil {
		return err
	}
	if err := o.cur.Transfer(ctx, t.Trader, pool.Account, t.Currency, bank.KeepAlive); err != nil {
		return err
	}
	o.rec.Record(TokenPurchase{Swap: pool.ID, Buyer: t.Trader, Recipient: t.Recipient, CurrencySold: t.Currency, TokensBought: t.Tokens})
	return nil
}

// sellTokens takes tokens from the trader and pays currency out of the reserve.
func (o *op) sellTokens(ctx context.Context, pool Pool, t Receipt) error {
	if err := o.book.Move(ctx, pool.TokenID, t.Trader, pool.Account, t.Tokens); err != nil {
		return err
	}
	if err := o.cur.Transfer(ctx, pool.Account, t.Recipient, t.Currency, bank.AllowDeath); err != nil {
		return err
	}
	o.rec.Record(CurrencyPurchase{Swap: pool.ID, Seller: t.Trader, Recipient: t.Recipient, TokensSold: t.Tokens, CurrencyBought: t.Currency})
	return nil
}

// =============================================================================
// QUOTES
// =============================================================================
//
// Quotes price a trade against committed reserves without moving anything.

// QuoteCurrencyToTokensInput returns the tokens bought by selling currency.
func (e *Engine) QuoteCurrencyToTokensInput(ctx context.Context, id ID, currency bank.Amount) (ledger.Balance, error) {
	_, r, err := e.view().poolWithReserves(ctx, id)
	if err != nil {
		return ledger.Balance{}, err
	}
	return InputPrice(Convert(currency), Convert(r.currency), r.tokens)
}

// QuoteCurrencyToTokensOutput returns the currency needed to buy tokens.
func (e *Engine) QuoteCurrencyToTokensOutput(ctx context.Context, id ID, tokens ledger.Balance) (bank.Amount, error) {
	_, r, err := e.view().poolWithReserves(ctx, id)
	if err != nil {
		return 0, err
	}
	cost, err := OutputPrice(tokens, Convert(r.currency), r.tokens)
	if err != nil {
		return 0, err
	}
	return Unconvert(cost)
}

// QuoteTokensToCurrencyInput returns the currency bought by selling tokens.
func (e *Engine) QuoteTokensToCurrencyInput(ctx context.Context, id ID, tokens ledger.Balance) (bank.Amount, error) {
	_, r, err := e.view().poolWithReserves(ctx, id)
	if err != nil {
		return 0, err
	}
	out, err := InputPrice(tokens, r.tokens, Convert(r.currency))
	if err != nil {
		return 0, err
	}
	return Unconvert(out)
}

// QuoteTokensToCurrencyOutput returns the tokens needed to buy currency.
func (e *Engine) QuoteTokensToCurrencyOutput(ctx context.Context, id ID, currency bank.Amount) (ledger.Balance, error) {
	_, r, err := e.view().poolWithReserves(ctx, id)
	if err != nil {
		return ledger.Balance{}, err
	}
	return OutputPrice(Convert(currency), r.tokens, Convert(r.currency))
}
