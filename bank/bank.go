/*
Package bank provides the base-currency accounts the swap engine pools against.

PURPOSE:
  The swap engine treats the base currency as an external collaborator with
  two calls: FreeBalance and Transfer. Bank is the in-process implementation
  of that contract. It persists through the same state.Store as the token
  ledger, so a swap's currency leg commits or rolls back together with its
  token legs.

ACCOUNT LIFECYCLE:
  An account exists while its balance is at least the existential deposit
  (ED). Transfers choose what happens when the sender would drop below it:

    KeepAlive:  the transfer fails with ErrKeepAlive
    AllowDeath: the sender is reaped; any dust below ED leaves issuance

  Crediting an account that does not exist with less than ED fails with
  ErrExistentialDeposit.

PERSISTED STATE:
  currency_balances <account> -> Amount (deleted when zero)
  currency_issuance           -> total Amount in existence

SEE ALSO:
  - swap/engine.go: Currency interface and binder
*/
package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/warp/swap-engine/ledger"
	"github.com/warp/swap-engine/state"
)

// Amount is a quantity of base currency.
type Amount uint64

func (a Amount) String() string { return strconv.FormatUint(uint64(a), 10) }

// ParseAmount parses a base-10 currency amount.
func ParseAmount(s string) (Amount, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse currency amount %q: %w", s, err)
	}
	return Amount(n), nil
}

// MarshalJSON writes the amount as a decimal string, like ledger.Balance.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	n, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = n
	return nil
}

// ExistenceRequirement says whether a transfer may reap the sender.
type ExistenceRequirement int

const (
	KeepAlive ExistenceRequirement = iota
	AllowDeath
)

func (r ExistenceRequirement) String() string {
	if r == AllowDeath {
		return "allow_death"
	}
	return "keep_alive"
}

var (
	// ErrInsufficientBalance is returned when the sender cannot cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient currency balance")

	// ErrKeepAlive is returned when a KeepAlive transfer would reap the sender.
	ErrKeepAlive = errors.New("transfer would kill account")

	// ErrExistentialDeposit is returned when a new account would be created below ED.
	ErrExistentialDeposit = errors.New("amount below existential deposit")

	// ErrOverflow is returned when a credit overflows the currency range.
	ErrOverflow = errors.New("currency overflow")
)

// Bank moves base currency between accounts of one state view.
type Bank struct {
	st state.Store
	ed Amount
}

// New binds a Bank to st. existentialDeposit of 0 is treated as 1.
func New(st state.Store, existentialDeposit Amount) *Bank {
	if existentialDeposit == 0 {
		existentialDeposit = 1
	}
	return &Bank{st: st, ed: existentialDeposit}
}

// ExistentialDeposit returns the minimum balance of a live account.
func (b *Bank) ExistentialDeposit() Amount {
	return b.ed
}

// FreeBalance returns who's balance (zero for unknown or reaped accounts).
func (b *Bank) FreeBalance(ctx context.Context, who ledger.AccountID) (Amount, error) {
	return b.read(ctx, state.MapCurrencyBalances, string(who))
}

// TotalIssuance returns the sum of all balances.
func (b *Bank) TotalIssuance(ctx context.Context) (Amount, error) {
	return b.read(ctx, state.MapCurrencyIssuance, state.Singleton)
}

// Deposit creates amount of new currency in who's account.
func (b *Bank) Deposit(ctx context.Context, who ledger.AccountID, amount Amount) error {
	if err := who.Validate(); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	bal, err := b.FreeBalance(ctx, who)
	if err != nil {
		return err
	}
	issuance, err := b.TotalIssuance(ctx)
	if err != nil {
		return err
	}
	if bal == 0 && amount < b.ed {
		return fmt.Errorf("%w: deposit %s < %s", ErrExistentialDeposit, amount, b.ed)
	}
	if amount > math.MaxUint64-bal || amount > math.MaxUint64-issuance {
		return ErrOverflow
	}

	if err := b.write(ctx, state.MapCurrencyBalances, string(who), bal+amount); err != nil {
		return err
	}
	return b.write(ctx, state.MapCurrencyIssuance, state.Singleton, issuance+amount)
}

// Transfer moves amount from `from` to `to` under the given existence requirement.
func (b *Bank) Transfer(ctx context.Context, from, to ledger.AccountID, amount Amount, req ExistenceRequirement) error {
	if err := from.Validate(); err != nil {
		return err
	}
	if err := to.Validate(); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}

	fromBal, err := b.FreeBalance(ctx, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, fromBal, amount)
	}
	if from == to {
		return nil
	}

	remaining := fromBal - amount
	var dust Amount
	if remaining < b.ed {
		if req == KeepAlive {
			return fmt.Errorf("%w: %s would keep %s < %s", ErrKeepAlive, from, remaining, b.ed)
		}
		dust, remaining = remaining, 0
	}

	toBal, err := b.FreeBalance(ctx, to)
	if err != nil {
		return err
	}
	if toBal == 0 && amount < b.ed {
		return fmt.Errorf("%w: %s receives %s < %s", ErrExistentialDeposit, to, amount, b.ed)
	}
	if amount > math.MaxUint64-toBal {
		return ErrOverflow
	}

	if err := b.write(ctx, state.MapCurrencyBalances, string(from), remaining); err != nil {
		return err
	}
	if err := b.write(ctx, state.MapCurrencyBalances, string(to), toBal+amount); err != nil {
		return err
	}
	if dust > 0 {
		issuance, err := b.TotalIssuance(ctx)
		if err != nil {
			return err
		}
		return b.write(ctx, state.MapCurrencyIssuance, state.Singleton, issuance-dust)
	}
	return nil
}

func (b *Bank) read(ctx context.Context, m state.Map, key string) (Amount, error) {
	v, ok, err := b.st.Get(ctx, m, key)
	if err != nil {
		return 0, fmt.Errorf("read %s[%s]: %w", m, key, err)
	}
	if !ok {
		return 0, nil
	}
	return ParseAmount(v)
}

func (b *Bank) write(ctx context.Context, m state.Map, key string, a Amount) error {
	var err error
	if a == 0 {
		err = b.st.Delete(ctx, m, key)
	} else {
		err = b.st.Set(ctx, m, key, a.String())
	}
	if err != nil {
		return fmt.Errorf("write %s[%s]: %w", m, key, err)
	}
	return nil
}
