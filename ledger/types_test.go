package ledger_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/swap-engine/ledger"
)

func TestBalance_CheckedArithmetic(t *testing.T) {
	top := ledger.MaxBalance()

	_, err := top.Add(bal(1))
	assert.ErrorIs(t, err, ledger.ErrOverflow)

	_, err = bal(1).Sub(bal(2))
	assert.ErrorIs(t, err, ledger.ErrUnderflow)

	_, err = top.Mul(bal(2))
	assert.ErrorIs(t, err, ledger.ErrOverflow)

	_, err = bal(1).Div(ledger.Zero)
	assert.ErrorIs(t, err, ledger.ErrDivisionByZero)

	q, err := bal(7).Div(bal(2))
	require.NoError(t, err)
	assert.Equal(t, "3", q.String(), "division floors")

	md, err := bal(300).MulDiv(bal(42), bal(420))
	require.NoError(t, err)
	assert.Equal(t, "30", md.String())
}

func TestBalance_ParseAndCompare(t *testing.T) {
	b, err := ledger.ParseBalance("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(t, err)
	assert.True(t, b.Equal(ledger.MaxBalance()))

	_, err = ledger.ParseBalance("-1")
	assert.Error(t, err)
	_, err = ledger.ParseBalance("abc")
	assert.Error(t, err)

	assert.True(t, bal(1).LessThan(bal(2)))
	assert.True(t, bal(2).GreaterThan(bal(1)))
	assert.Equal(t, 0, bal(5).Cmp(bal(5)))
	assert.True(t, ledger.Zero.IsZero())

	n, ok := bal(99).Uint64()
	assert.True(t, ok)
	assert.Equal(t, uint64(99), n)
	_, ok = ledger.MaxBalance().Uint64()
	assert.False(t, ok)
}

func TestBalance_JSON(t *testing.T) {
	type payload struct {
		Amount ledger.Balance `json:"amount"`
	}

	out, err := json.Marshal(payload{Amount: bal(420)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"420"}`, string(out))

	var fromString, fromNumber payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"17"}`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`{"amount":17}`), &fromNumber))
	assert.Equal(t, "17", fromString.Amount.String())
	assert.Equal(t, "17", fromNumber.Amount.String())

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"-3"}`), &fromString))
}

func TestAccountID(t *testing.T) {
	assert.NoError(t, ledger.AccountID("alice").Validate())
	assert.ErrorIs(t, ledger.AccountID("").Validate(), ledger.ErrInvalidAccount)
	assert.ErrorIs(t, ledger.AccountID("a/b").Validate(), ledger.ErrInvalidAccount)

	assert.True(t, ledger.AccountID("swap:abcd").Reserved())
	assert.False(t, ledger.AccountID("alice").Reserved())
}
