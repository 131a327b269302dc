/*
errors.go - Error types for the pool registry

ERROR CATEGORIES:
  1. Validation - caller-fixable, checked before any mutation
     (ErrSwapAlreadyExists, ErrNoSwapExists, ErrExpired, zero amounts,
     ErrRequestedZeroLiquidity, ErrBurnZeroShares)
  2. Insufficiency - depend on pool state or slippage bounds
     (ErrNoLiquidity, ErrTooManyTokens, ErrTooLowLiquidity, ErrNotEnough*,
     ErrTooExpensive*), usually wrapped in *SlippageError
  3. Arithmetic - degenerate reserves or range overflow
     (ErrPoolDrained, ErrCurrencyOverflow, ledger.ErrOverflow,
     ledger.ErrDivisionByZero)

Zero-amount errors wrap ledger.ErrZeroAmount so callers can test either.
*/
package swap

import (
	"errors"
	"fmt"

	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/ledger"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrSwapAlreadyExists = errors.New("swap already exists for token")
	ErrNoSwapExists      = errors.New("swap does not exist")
	ErrExpired           = errors.New("deadline expired")

	ErrZeroTokens        = fmt.Errorf("%w: no tokens offered", ledger.ErrZeroAmount)
	ErrNoCurrencySwapped = fmt.Errorf("%w: no currency swapped", ledger.ErrZeroAmount)
	ErrNoTokensSwapped   = fmt.Errorf("%w: no tokens swapped", ledger.ErrZeroAmount)

	ErrRequestedZeroLiquidity = errors.New("requested zero liquidity")
	ErrBurnZeroShares         = errors.New("burn zero shares")
	ErrNoLiquidity            = errors.New("pool has no liquidity")

	ErrTooManyTokens        = errors.New("deposit requires more tokens than max_tokens")
	ErrTooLowLiquidity      = errors.New("deposit mints fewer shares than min_shares")
	ErrNotEnoughCurrency    = errors.New("currency out below minimum")
	ErrNotEnoughTokens      = errors.New("tokens out below minimum")
	ErrTooExpensiveCurrency = errors.New("currency in above maximum")
	ErrTooExpensiveTokens   = errors.New("tokens in above maximum")

	// ErrPoolDrained is returned when a trade asks for the whole output reserve or more.
	ErrPoolDrained = errors.New("output would drain pool")

	// ErrCurrencyOverflow is returned when a token-domain amount does not fit
	// the currency domain.
	ErrCurrencyOverflow = errors.New("amount exceeds currency range")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// SlippageError reports a computed amount that violated the caller's bound.
type SlippageError struct {
	Err      error
	Expected string
	Limit    string
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("%v: computed %s, limit %s", e.Err, e.Expected, e.Limit)
}

func (e *SlippageError) Unwrap() error {
	return e.Err
}

func slippage(err error, expected, limit fmt.Stringer) error {
	return &SlippageError{Err: err, Expected: expected.String(), Limit: limit.String()}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

var clientErrors = []error{
	ErrSwapAlreadyExists, ErrExpired, ErrRequestedZeroLiquidity, ErrBurnZeroShares,
	ErrNoLiquidity, ErrTooManyTokens, ErrTooLowLiquidity, ErrNotEnoughCurrency,
	ErrNotEnoughTokens, ErrTooExpensiveCurrency, ErrTooExpensiveTokens, ErrPoolDrained,
	ErrCurrencyOverflow,
	ledger.ErrZeroAmount, ledger.ErrInsufficientFunds, ledger.ErrInsufficientAllowance,
	ledger.ErrOverflow, ledger.ErrUnderflow, ledger.ErrDivisionByZero,
	ledger.ErrIDSpaceExhausted, ledger.ErrInvalidAccount,
	bank.ErrInsufficientBalance, bank.ErrKeepAlive, bank.ErrExistentialDeposit, bank.ErrOverflow,
}

// IsClientError reports whether err was caused by the request or by the state
// it ran against, as opposed to a storage failure.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err names a pool or asset that does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoSwapExists) || errors.Is(err, ledger.ErrUnknownAsset)
}
