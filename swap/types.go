package swap

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/ledger"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ID identifies a pool. Ids are assigned from SwapCount and never reused.
type ID uint64

func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseID parses a base-10 pool id.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse swap id %q: %w", s, err)
	}
	return ID(n), nil
}

// =============================================================================
// POOL RECORD
// =============================================================================

// Pool is the persisted record of one pool. Reserves are never stored here:
// they are read from the reserve account's balances on demand.
type Pool struct {
	ID      ID               `json:"id"`
	TokenID ledger.AssetID   `json:"token_id"`
	ShareID ledger.AssetID   `json:"share_id"`
	Account ledger.AccountID `json:"reserve_account"`
	Creator ledger.AccountID `json:"creator"`
}

// PoolState is derived from the share supply.
type PoolState int

const (
	// Empty pools have no shares outstanding. The next deposit sets the price.
	Empty PoolState = iota
	// Seeded pools have shares outstanding and trade on the curve.
	Seeded
)

func (s PoolState) String() string {
	if s == Seeded {
		return "seeded"
	}
	return "empty"
}

func (s PoolState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func stateOf(shares ledger.Balance) PoolState {
	if shares.IsZero() {
		return Empty
	}
	return Seeded
}

// Reserves is a read-only snapshot of a pool's balances.
type Reserves struct {
	Swap      ID              `json:"swap"`
	Currency  bank.Amount     `json:"currency"`
	Tokens    ledger.Balance  `json:"tokens"`
	Shares    ledger.Balance  `json:"shares"`
	State     PoolState       `json:"state"`
	SpotPrice decimal.Decimal `json:"spot_price"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// Deadlines are compared against Clock.Now. A request is valid while
// Deadline >= Now.

type AddLiquidityRequest struct {
	Swap      ID             `json:"swap"`
	Currency  bank.Amount    `json:"currency"`
	MinShares ledger.Balance `json:"min_shares"`
	MaxTokens ledger.Balance `json:"max_tokens"`
	Deadline  uint64         `json:"deadline"`
}

type RemoveLiquidityRequest struct {
	Swap        ID             `json:"swap"`
	Shares      ledger.Balance `json:"shares"`
	MinCurrency bank.Amount    `json:"min_currency"`
	MinTokens   ledger.Balance `json:"min_tokens"`
	Deadline    uint64         `json:"deadline"`
}

// LiquidityReceipt reports the amounts an add or remove actually moved.
type LiquidityReceipt struct {
	Swap     ID             `json:"swap"`
	Currency bank.Amount    `json:"currency"`
	Tokens   ledger.Balance `json:"tokens"`
	Shares   ledger.Balance `json:"shares"`
}

// Trade requests. Recipient receives the output leg; an empty Recipient
// means the caller.

type CurrencyToTokensInputRequest struct {
	Swap      ID               `json:"swap"`
	Currency  bank.Amount      `json:"currency"`
	MinTokens ledger.Balance   `json:"min_tokens"`
	Deadline  uint64           `json:"deadline"`
	Recipient ledger.AccountID `json:"recipient,omitempty"`
}

type CurrencyToTokensOutputRequest struct {
	Swap        ID               `json:"swap"`
	Tokens      ledger.Balance   `json:"tokens"`
	MaxCurrency bank.Amount      `json:"max_currency"`
	Deadline    uint64           `json:"deadline"`
	Recipient   ledger.AccountID `json:"recipient,omitempty"`
}

type TokensToCurrencyInputRequest struct {
	Swap        ID               `json:"swap"`
	Tokens      ledger.Balance   `json:"tokens"`
	MinCurrency bank.Amount      `json:"min_currency"`
	Deadline    uint64           `json:"deadline"`
	Recipient   ledger.AccountID `json:"recipient,omitempty"`
}

type TokensToCurrencyOutputRequest struct {
	Swap      ID               `json:"swap"`
	Currency  bank.Amount      `json:"currency"`
	MaxTokens ledger.Balance   `json:"max_tokens"`
	Deadline  uint64           `json:"deadline"`
	Recipient ledger.AccountID `json:"recipient,omitempty"`
}

// Receipt reports both legs of a settled trade.
type Receipt struct {
	Swap      ID               `json:"swap"`
	Trader    ledger.AccountID `json:"trader"`
	Recipient ledger.AccountID `json:"recipient"`
	Currency  bank.Amount      `json:"currency"`
	Tokens    ledger.Balance   `json:"tokens"`
}
