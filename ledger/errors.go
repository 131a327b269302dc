/*
errors.go - Centralized error types for the token ledger

ERROR CATEGORIES:
  1. Validation errors - ZeroAmount, InvalidAccount, UnknownAsset
  2. Insufficiency errors - InsufficientFunds, InsufficientAllowance
  3. Arithmetic errors - Overflow, Underflow, DivisionByZero, IDSpaceExhausted

Every error is returned before any state is written. Callers match with
errors.Is; structured errors Unwrap to their sentinel.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrZeroAmount is returned when a transfer or approval moves nothing.
	ErrZeroAmount = errors.New("zero amount")

	// ErrInsufficientFunds is returned when a debit exceeds the owner's balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientAllowance is returned when a spender exceeds its allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrOverflow is returned when a checked addition or multiplication overflows.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrUnderflow is returned when a checked subtraction would go below zero.
	ErrUnderflow = errors.New("arithmetic underflow")

	// ErrDivisionByZero is returned by Balance.Div with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrIDSpaceExhausted is returned when the asset counter cannot advance.
	ErrIDSpaceExhausted = errors.New("asset id space exhausted")

	// ErrUnknownAsset is returned for an asset id that was never issued.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrInvalidAccount is returned for an empty account id or one containing "/".
	ErrInvalidAccount = errors.New("invalid account id")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	Asset     AssetID
	Account   AccountID
	Available Balance
	Requested Balance
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: asset %s account %s has %s, needs %s",
		e.Asset, e.Account, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// InsufficientAllowanceError provides details about an allowance shortage.
type InsufficientAllowanceError struct {
	Asset     AssetID
	Owner     AccountID
	Spender   AccountID
	Allowed   Balance
	Requested Balance
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("insufficient allowance: %s may spend %s of %s's asset %s, needs %s",
		e.Spender, e.Allowed, e.Owner, e.Asset, e.Requested)
}

func (e *InsufficientAllowanceError) Unwrap() error {
	return ErrInsufficientAllowance
}

// IsArithmetic reports whether err is a checked-arithmetic failure.
func IsArithmetic(err error) bool {
	return errors.Is(err, ErrOverflow) ||
		errors.Is(err, ErrUnderflow) ||
		errors.Is(err, ErrDivisionByZero) ||
		errors.Is(err, ErrIDSpaceExhausted)
}
