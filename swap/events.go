package swap

import (
	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/ledger"
)

type PoolCreated struct {
	Swap    ID               `json:"swap"`
	Token   ledger.AssetID   `json:"token"`
	Share   ledger.AssetID   `json:"share"`
	Account ledger.AccountID `json:"reserve_account"`
	Creator ledger.AccountID `json:"creator"`
}

func (PoolCreated) EventKind() string { return "pool_created" }

type LiquidityAdded struct {
	Swap     ID               `json:"swap"`
	Provider ledger.AccountID `json:"provider"`
	Currency bank.Amount      `json:"currency"`
	Tokens   ledger.Balance   `json:"tokens"`
	Shares   ledger.Balance   `json:"shares"`
}

func (LiquidityAdded) EventKind() string { return "liquidity_added" }

type LiquidityRemoved struct {
	Swap     ID               `json:"swap"`
	Provider ledger.AccountID `json:"provider"`
	Currency bank.Amount      `json:"currency"`
	Tokens   ledger.Balance   `json:"tokens"`
	Shares   ledger.Balance   `json:"shares"`
}

func (LiquidityRemoved) EventKind() string { return "liquidity_removed" }

// TokenPurchase is emitted when currency is sold for tokens.
type TokenPurchase struct {
	Swap         ID               `json:"swap"`
	Buyer        ledger.AccountID `json:"buyer"`
	Recipient    ledger.AccountID `json:"recipient"`
	CurrencySold bank.Amount      `json:"currency_sold"`
	TokensBought ledger.Balance   `json:"tokens_bought"`
}

func (TokenPurchase) EventKind() string { return "token_purchase" }

// CurrencyPurchase is emitted when tokens are sold for currency.
type CurrencyPurchase struct {
	Swap           ID               `json:"swap"`
	Seller         ledger.AccountID `json:"seller"`
	Recipient      ledger.AccountID `json:"recipient"`
	TokensSold     ledger.Balance   `json:"tokens_sold"`
	CurrencyBought bank.Amount      `json:"currency_bought"`
}

func (CurrencyPurchase) EventKind() string { return "currency_purchase" }
