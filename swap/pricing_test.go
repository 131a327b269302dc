package swap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/ledger"
	"github.com/warp/swap-engine/swap"
)

func bal(n uint64) ledger.Balance {
	return ledger.NewBalance(n)
}

func TestInputPrice(t *testing.T) {
	tests := []struct {
		name                      string
		in, inReserve, outReserve uint64
		want                      uint64
	}{
		{"currency for tokens", 300, 420, 42, 17},
		{"tokens for currency", 20, 42, 420, 135},
		{"tiny trade floors to zero", 1, 420, 42, 0},
		{"empty output reserve", 100, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := swap.InputPrice(bal(tt.in), bal(tt.inReserve), bal(tt.outReserve))
			require.NoError(t, err)
			assert.Equal(t, bal(tt.want).String(), got.String())
		})
	}
}

func TestInputPrice_Degenerate(t *testing.T) {
	_, err := swap.InputPrice(ledger.Zero, ledger.Zero, bal(42))
	assert.ErrorIs(t, err, ledger.ErrDivisionByZero)

	_, err = swap.InputPrice(ledger.MaxBalance(), bal(1), bal(1))
	assert.ErrorIs(t, err, ledger.ErrOverflow)
}

func TestOutputPrice(t *testing.T) {
	tests := []struct {
		name                       string
		out, inReserve, outReserve uint64
		want                       uint64
	}{
		{"tokens bought with currency", 17, 420, 42, 287},
		{"currency bought with tokens", 135, 42, 420, 20},
		{"smallest output still costs one", 1, 1, 1000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := swap.OutputPrice(bal(tt.out), bal(tt.inReserve), bal(tt.outReserve))
			require.NoError(t, err)
			assert.Equal(t, bal(tt.want).String(), got.String())
		})
	}
}

func TestOutputPrice_PoolDrained(t *testing.T) {
	_, err := swap.OutputPrice(bal(42), bal(420), bal(42))
	assert.ErrorIs(t, err, swap.ErrPoolDrained)

	_, err = swap.OutputPrice(bal(43), bal(420), bal(42))
	assert.ErrorIs(t, err, swap.ErrPoolDrained)

	_, err = swap.OutputPrice(bal(1), bal(420), ledger.Zero)
	assert.ErrorIs(t, err, swap.ErrPoolDrained)
}

func TestPricing_Monotonic(t *testing.T) {
	// GIVEN: Fixed reserves
	// WHEN: The traded amount grows
	// THEN: Neither price ever decreases

	inReserve, outReserve := bal(10_000), bal(3_000)
	prevIn, prevOut := ledger.Zero, ledger.Zero
	for amount := uint64(1); amount < 3_000; amount += 7 {
		in, err := swap.InputPrice(bal(amount), inReserve, outReserve)
		require.NoError(t, err)
		assert.False(t, in.LessThan(prevIn), "input price decreased at %d", amount)
		prevIn = in

		out, err := swap.OutputPrice(bal(amount), inReserve, outReserve)
		require.NoError(t, err)
		assert.False(t, out.LessThan(prevOut), "output price decreased at %d", amount)
		prevOut = out
	}
}

func TestPricing_RoundTripNeverProfits(t *testing.T) {
	// GIVEN: A pool with reserves (currency=10000, token=500)
	// WHEN: x currency is sold for tokens and the tokens are sold straight back
	// THEN: The trader gets back strictly less than x

	currency, tokens := bal(10_000), bal(500)
	for x := uint64(1); x <= 5_000; x += 37 {
		bought, err := swap.InputPrice(bal(x), currency, tokens)
		require.NoError(t, err)

		newCurrency, err := currency.Add(bal(x))
		require.NoError(t, err)
		newTokens, err := tokens.Sub(bought)
		require.NoError(t, err)

		back, err := swap.InputPrice(bought, newTokens, newCurrency)
		require.NoError(t, err)
		assert.True(t, back.LessThan(bal(x)), "round trip of %d returned %s", x, back)
	}
}

func TestConvert(t *testing.T) {
	assert.Equal(t, "18446744073709551615", swap.Convert(bank.Amount(1<<64-1)).String())

	a, err := swap.Unconvert(bal(420))
	require.NoError(t, err)
	assert.Equal(t, bank.Amount(420), a)

	over, err := swap.Convert(bank.Amount(1<<64 - 1)).Add(bal(1))
	require.NoError(t, err)
	_, err = swap.Unconvert(over)
	assert.ErrorIs(t, err, swap.ErrCurrencyOverflow)
}

func TestSpotPrice(t *testing.T) {
	assert.Equal(t, "10", swap.SpotPrice(420, bal(42)).String())
	assert.Equal(t, "28.8", swap.SpotPrice(720, bal(25)).String())
	assert.True(t, swap.SpotPrice(420, ledger.Zero).IsZero())
}

func TestReserveAccount(t *testing.T) {
	a, b := swap.ReserveAccount(0), swap.ReserveAccount(1)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, swap.ReserveAccount(0), "derivation is deterministic")
	assert.True(t, a.Reserved())
	assert.NoError(t, a.Validate())
	assert.Len(t, string(a), len(ledger.ReservedPrefix)+64)
}
