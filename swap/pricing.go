/*
pricing.go - Constant-product pricing with a 0.3% fee

FORMULAS:
  InputPrice (exact in, how much out):
    fee = in * 997
    out = floor(fee * outReserve / (inReserve * 1000 + fee))

  OutputPrice (exact out, how much in):
    in = floor(inReserve * out * 1000 / ((outReserve - out) * 997)) + 1

  Both multiply before dividing. InputPrice floors and OutputPrice adds one,
  so rounding always favours the pool.

CURRENCY DOMAIN:
  Currency amounts are uint64 (bank.Amount) and token amounts are 256-bit
  (ledger.Balance). Convert widens without loss. Unconvert refuses values
  above 2^64-1 with ErrCurrencyOverflow. The only drift between the two
  domains is the floor division above.
*/
package swap

import (
	"github.com/shopspring/decimal"
	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/ledger"
)

const (
	FeeNumerator   = 997
	FeeDenominator = 1000
)

var (
	feeNumerator   = ledger.NewBalance(FeeNumerator)
	feeDenominator = ledger.NewBalance(FeeDenominator)
	one            = ledger.NewBalance(1)
)

// InputPrice returns the output bought by selling in against the given reserves.
func InputPrice(in, inReserve, outReserve ledger.Balance) (ledger.Balance, error) {
	feeAdjusted, err := in.Mul(feeNumerator)
	if err != nil {
		return ledger.Balance{}, err
	}
	numerator, err := feeAdjusted.Mul(outReserve)
	if err != nil {
		return ledger.Balance{}, err
	}
	scaled, err := inReserve.Mul(feeDenominator)
	if err != nil {
		return ledger.Balance{}, err
	}
	denominator, err := scaled.Add(feeAdjusted)
	if err != nil {
		return ledger.Balance{}, err
	}
	return numerator.Div(denominator)
}

// OutputPrice returns the input needed to buy exactly out against the given reserves.
func OutputPrice(out, inReserve, outReserve ledger.Balance) (ledger.Balance, error) {
	if !out.LessThan(outReserve) {
		return ledger.Balance{}, ErrPoolDrained
	}
	numerator, err := inReserve.Mul(out)
	if err != nil {
		return ledger.Balance{}, err
	}
	if numerator, err = numerator.Mul(feeDenominator); err != nil {
		return ledger.Balance{}, err
	}
	remaining, err := outReserve.Sub(out)
	if err != nil {
		return ledger.Balance{}, err
	}
	denominator, err := remaining.Mul(feeNumerator)
	if err != nil {
		return ledger.Balance{}, err
	}
	q, err := numerator.Div(denominator)
	if err != nil {
		return ledger.Balance{}, err
	}
	return q.Add(one)
}

// Convert widens a currency amount into the token domain.
func Convert(a bank.Amount) ledger.Balance {
	return ledger.NewBalance(uint64(a))
}

// Unconvert narrows a token-domain amount into the currency domain.
func Unconvert(b ledger.Balance) (bank.Amount, error) {
	n, ok := b.Uint64()
	if !ok {
		return 0, ErrCurrencyOverflow
	}
	return bank.Amount(n), nil
}

// SpotPrice is the currency price of one token at the current reserves.
// It is for display only; settlement always goes through InputPrice/OutputPrice.
func SpotPrice(currencyReserve bank.Amount, tokenReserve ledger.Balance) decimal.Decimal {
	if tokenReserve.IsZero() {
		return decimal.Zero
	}
	currency := decimal.RequireFromString(currencyReserve.String())
	tokens := decimal.RequireFromString(tokenReserve.String())
	return currency.DivRound(tokens, spotPricePrecision)
}

const spotPricePrecision = 18
