/*
dto.go - Data Transfer Objects for the HTTP API

PURPOSE:
  Request and response shapes for the JSON API. Amounts are decimal strings
  on the wire (token balances do not fit in a JSON number); requests accept
  plain numbers too.

  Swap request and receipt types from the swap package are used as bodies
  directly. The swap id in their body is ignored in favour of the path.

SEE ALSO:
  - handlers.go: Uses these DTOs
  - swap/types.go: Pool, Reserves, trade requests and receipts
*/
package api

import (
	"time"

	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/ledger"
	"github.com/warp/swap-engine/swap"
)

// =============================================================================
// ASSET DTOs
// =============================================================================

// CreateAssetRequest issues a new asset to the caller.
type CreateAssetRequest struct {
	InitialSupply ledger.Balance `json:"initial_supply"`
}

// AssetDTO describes an asset and its holders.
type AssetDTO struct {
	ID          ledger.AssetID `json:"id"`
	TotalSupply ledger.Balance `json:"total_supply"`
	Holders     []HoldingDTO   `json:"holders"`
	Pool        *swap.ID       `json:"pool,omitempty"`
	ShareOf     *swap.ID       `json:"share_of,omitempty"`
}

// HoldingDTO is one holder's balance.
type HoldingDTO struct {
	Account ledger.AccountID `json:"account"`
	Balance ledger.Balance   `json:"balance"`
}

// BalanceDTO answers a single balance query.
type BalanceDTO struct {
	Asset   ledger.AssetID   `json:"asset"`
	Account ledger.AccountID `json:"account"`
	Balance ledger.Balance   `json:"balance"`
}

// AllowanceDTO answers an allowance query.
type AllowanceDTO struct {
	Asset     ledger.AssetID   `json:"asset"`
	Owner     ledger.AccountID `json:"owner"`
	Spender   ledger.AccountID `json:"spender"`
	Allowance ledger.Balance   `json:"allowance"`
}

// TransferRequest moves the caller's tokens.
type TransferRequest struct {
	To     ledger.AccountID `json:"to"`
	Amount ledger.Balance   `json:"amount"`
}

// ApproveRequest raises a spender's allowance over the caller's tokens.
type ApproveRequest struct {
	Spender ledger.AccountID `json:"spender"`
	Amount  ledger.Balance   `json:"amount"`
}

// TransferFromRequest spends an allowance granted to the caller.
type TransferFromRequest struct {
	Owner  ledger.AccountID `json:"owner"`
	To     ledger.AccountID `json:"to"`
	Amount ledger.Balance   `json:"amount"`
}

// MintRequest credits new tokens; To defaults to the caller.
type MintRequest struct {
	To     ledger.AccountID `json:"to,omitempty"`
	Amount ledger.Balance   `json:"amount"`
}

// BurnRequest destroys the caller's tokens.
type BurnRequest struct {
	Amount ledger.Balance `json:"amount"`
}

// =============================================================================
// SWAP DTOs
// =============================================================================

// CreatePoolRequest opens a pool for an existing asset.
type CreatePoolRequest struct {
	Token ledger.AssetID `json:"token"`
}

// PoolDTO is a pool with its current reserves.
type PoolDTO struct {
	swap.Pool
	Reserves swap.Reserves `json:"reserves"`
}

// QuoteDTO answers a price query. Amount is what the trade would pay or cost.
type QuoteDTO struct {
	Swap   swap.ID `json:"swap"`
	Kind   string  `json:"kind"`
	Input  string  `json:"input"`
	Amount string  `json:"amount"`
}

// =============================================================================
// CURRENCY DTOs
// =============================================================================

// CurrencyDTO is an account's free currency balance.
type CurrencyDTO struct {
	Account            ledger.AccountID `json:"account"`
	Free               bank.Amount      `json:"free"`
	TotalIssuance      bank.Amount      `json:"total_issuance"`
	ExistentialDeposit bank.Amount      `json:"existential_deposit"`
}

// DepositRequest mints currency to the caller.
type DepositRequest struct {
	Amount bank.Amount `json:"amount"`
}

// =============================================================================
// EVENT & SCENARIO DTOs
// =============================================================================

// EventDTO is a published event.
type EventDTO struct {
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// SlippageDetails explains a rejected limit.
type SlippageDetails struct {
	Reason   string `json:"reason"`
	Expected string `json:"expected"`
	Limit    string `json:"limit"`
}
