/*
Package ledger provides the multi-asset token ledger.

PURPOSE:
  Owns all per-asset balance state for any number of fungible assets:
  supply, per-owner balances and per-(owner, spender) allowances. It knows
  nothing about pools or pricing; the swap engine drives it like any other
  caller.

KEY CONCEPTS IN THIS FILE (types.go):
  - Balance: Unsigned 256-bit quantity with checked arithmetic
  - AssetID: Monotonically assigned, never reused asset identifier
  - AccountID: Opaque, already-authenticated account identity

INVARIANTS:
  Supply:   TotalSupply(id) == sum of BalanceOf(id, owner) over all owners
  Unsigned: Nothing ever goes negative. Every debit is checked before any write;
            arithmetic never wraps.

USAGE:
  l := ledger.NewLedger(store.NewTxMemory(), event.Discard)
  id, _ := l.CreateAsset(ctx, "alice", ledger.NewBalance(42))
  _ = l.Transfer(ctx, id, "alice", "bob", ledger.NewBalance(22))

SEE ALSO:
  - ledger.go: Book (single state view) and Ledger (atomic operations)
  - errors.go: Error taxonomy
*/
package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// =============================================================================
// BALANCE - Unsigned quantity with checked arithmetic
// =============================================================================

// Balance is an unsigned 256-bit amount. The zero value is zero.
// Arithmetic returns ErrOverflow/ErrUnderflow/ErrDivisionByZero instead of wrapping.
type Balance struct {
	v uint256.Int
}

// Zero is the zero balance.
var Zero Balance

func NewBalance(n uint64) Balance {
	var b Balance
	b.v.SetUint64(n)
	return b
}

// MaxBalance returns 2^256-1.
func MaxBalance() Balance {
	var b Balance
	b.v.SetAllOne()
	return b
}

// ParseBalance parses a base-10 string.
func ParseBalance(s string) (Balance, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return Balance{}, fmt.Errorf("parse balance %q: %w", s, err)
	}
	return Balance{v: *v}, nil
}

// MustParseBalance is ParseBalance for constants; it panics on bad input.
func MustParseBalance(s string) Balance {
	b, err := ParseBalance(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b Balance) Add(o Balance) (Balance, error) {
	var r Balance
	if _, overflow := r.v.AddOverflow(&b.v, &o.v); overflow {
		return Balance{}, ErrOverflow
	}
	return r, nil
}

func (b Balance) Sub(o Balance) (Balance, error) {
	var r Balance
	if _, underflow := r.v.SubOverflow(&b.v, &o.v); underflow {
		return Balance{}, ErrUnderflow
	}
	return r, nil
}

func (b Balance) Mul(o Balance) (Balance, error) {
	var r Balance
	if _, overflow := r.v.MulOverflow(&b.v, &o.v); overflow {
		return Balance{}, ErrOverflow
	}
	return r, nil
}

// Div returns floor(b / o).
func (b Balance) Div(o Balance) (Balance, error) {
	if o.IsZero() {
		return Balance{}, ErrDivisionByZero
	}
	var r Balance
	r.v.Div(&b.v, &o.v)
	return r, nil
}

// MulDiv returns floor(b * m / d), multiplying first to keep precision.
func (b Balance) MulDiv(m, d Balance) (Balance, error) {
	p, err := b.Mul(m)
	if err != nil {
		return Balance{}, err
	}
	return p.Div(d)
}

func (b Balance) Cmp(o Balance) int          { return b.v.Cmp(&o.v) }
func (b Balance) Equal(o Balance) bool       { return b.v.Eq(&o.v) }
func (b Balance) LessThan(o Balance) bool    { return b.v.Lt(&o.v) }
func (b Balance) GreaterThan(o Balance) bool { return b.v.Gt(&o.v) }
func (b Balance) IsZero() bool               { return b.v.IsZero() }
func (b Balance) IsPositive() bool           { return !b.v.IsZero() }
func (b Balance) String() string             { return b.v.Dec() }

// Uint64 returns the value and whether it fits in 64 bits.
func (b Balance) Uint64() (uint64, bool) {
	if !b.v.IsUint64() {
		return 0, false
	}
	return b.v.Uint64(), true
}

func (b Balance) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Balance) UnmarshalText(text []byte) error {
	parsed, err := ParseBalance(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalJSON encodes the balance as a decimal string so no JSON reader loses precision.
func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON accepts a decimal string or a bare JSON number.
func (b *Balance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("balance must be a decimal string or number: %w", err)
		}
		s = n.String()
	}
	return b.UnmarshalText([]byte(s))
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// AssetID identifies one fungible asset. Ids are assigned from AssetCount.
type AssetID uint64

func (id AssetID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseAssetID parses a base-10 asset id.
func ParseAssetID(s string) (AssetID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse asset id %q: %w", s, err)
	}
	return AssetID(n), nil
}

// AccountID is an opaque account identity. The enclosing framework is
// responsible for authenticating it before it reaches the ledger.
type AccountID string

// ReservedPrefix marks accounts derived by the system (pool reserves).
// Ordinary callers must never be allowed to act as one.
const ReservedPrefix = "swap:"

// Validate rejects ids that cannot be used as a state key component.
func (a AccountID) Validate() error {
	if a == "" || strings.Contains(string(a), "/") {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, string(a))
	}
	return nil
}

// Reserved reports whether a lives in the system account namespace.
func (a AccountID) Reserved() bool {
	return strings.HasPrefix(string(a), ReservedPrefix)
}

// Holding is one owner's balance of an asset.
type Holding struct {
	Account AccountID
	Balance Balance
}
