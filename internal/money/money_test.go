package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSameCurrency(t *testing.T) {
	a := MustParse("100.10", "usdt")
	b := MustParse("0.90", "USDT")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustParse("101", "USDT")))
	assert.Equal(t, "USDT", sum.Currency())
}

func TestAddMismatchedCurrencyFails(t *testing.T) {
	_, err := MustParse("1", "USDT").Add(MustParse("1", "BTC"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCurrencyMismatch))

	_, err = MustParse("1", "USDT").Sub(MustParse("1", "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = MustParse("1", "USDT").Cmp(MustParse("1", "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestSubAndMul(t *testing.T) {
	diff, err := MustParse("105", "USDT").Sub(MustParse("100", "USDT"))
	require.NoError(t, err)
	assert.Equal(t, "5", diff.Amount().String())

	scaled := MustParse("100", "USDT").Mul(decimal.RequireFromString("1.001"))
	assert.True(t, scaled.Equal(MustParse("100.1", "USDT")))
}

func TestEqualityIsValueBased(t *testing.T) {
	assert.True(t, MustParse("1.5", "USDT").Equal(MustParse("1.50", "USDT")))
	assert.False(t, MustParse("1.5", "USDT").Equal(MustParse("1.5", "USD")))
}

func TestOrderingConsistentWithAmounts(t *testing.T) {
	a := MustParse("1", "USDT")
	b := MustParse("2", "USDT")
	c := MustParse("3", "USDT")

	// reflexive
	cmp, err := a.Cmp(a)
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)
	assert.True(t, a.Equal(a))

	// transitive
	ab, _ := a.LessThan(b)
	bc, _ := b.LessThan(c)
	ac, _ := a.LessThan(c)
	assert.True(t, ab && bc && ac)

	gt, err := c.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, gt)
}

func TestAbsNegAndPredicates(t *testing.T) {
	m := MustParse("-2.5", "USDT")
	assert.True(t, m.IsNegative())
	assert.True(t, m.Abs().IsPositive())
	assert.True(t, m.Neg().Equal(MustParse("2.5", "USDT")))
	assert.True(t, Zero("USDT").IsZero())
}

func TestNewFromStringRejectsGarbage(t *testing.T) {
	_, err := NewFromString("abc", "USDT")
	assert.Error(t, err)
	assert.Panics(t, func() { MustParse("abc", "USDT") })
}

func TestJSONRoundTrip(t *testing.T) {
	in := MustParse("42150.25", "USDT")
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"42150.25","currency":"USDT"}`, string(b))

	var out Money
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, in.Equal(out))
}

func TestString(t *testing.T) {
	assert.Equal(t, "10.5 USDT", MustParse("10.5", "USDT").String())
	assert.Equal(t, "3", New(decimal.NewFromInt(3), "").String())
}
