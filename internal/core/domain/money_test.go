package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMoney(t *testing.T, amount string, c Currency) Money {
	t.Helper()
	m, err := ParseMoney(amount, c)
	require.NoError(t, err)
	return m
}

func TestCurrencySet_Parse(t *testing.T) {
	set := DefaultCurrencies()

	c, err := set.Parse(" eur ")
	require.NoError(t, err)
	assert.Equal(t, EUR, c)

	_, err = set.Parse("GBP")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = set.Parse("   ")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestCurrencySet_Injectable(t *testing.T) {
	set := NewCurrencySet("gbp", "EUR", "")

	gbp, err := set.Parse("GBP")
	require.NoError(t, err)
	assert.Equal(t, "GBP", gbp.Code())

	_, err = set.Parse("USD")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
	assert.Equal(t, []string{"EUR", "GBP"}, set.Codes())
}

func TestNewMoney_Negative(t *testing.T) {
	_, err := NewMoney(decimal.NewFromInt(-1), EUR)
	assert.ErrorIs(t, err, ErrNegativeAmount)
	assert.ErrorIs(t, err, ErrValidation)

	for _, raw := range []string{"-0.001", "-0.004", "-0.005"} {
		_, err := NewMoney(decimal.RequireFromString(raw), EUR)
		assert.ErrorIs(t, err, ErrNegativeAmount, raw)
	}

	zero, err := NewMoney(decimal.Zero, USD)
	require.NoError(t, err)
	assert.True(t, zero.Equal(ZeroMoney(USD)))
}

func TestNewMoney_RoundsHalfEven(t *testing.T) {
	cases := map[string]string{
		"1.005": "1.00",
		"1.015": "1.02",
		"1.025": "1.02",
		"2.675": "2.68",
		"0.125": "0.12",
	}
	for in, want := range cases {
		m := mustMoney(t, in, EUR)
		assert.Equal(t, want, m.Amount().StringFixed(2), "input %s", in)
	}
}

func TestParseMoney_Garbage(t *testing.T) {
	_, err := ParseMoney("ten", EUR)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMoney_EqualityIgnoresTrailingZeros(t *testing.T) {
	a := mustMoney(t, "5.0", EUR)
	b := mustMoney(t, "5.00", EUR)
	c := mustMoney(t, "5", EUR)

	assert.True(t, a.Equal(a))
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.True(t, b.Equal(c))
	assert.True(t, a.Equal(c))

	assert.False(t, a.Equal(mustMoney(t, "5.00", USD)))
}

func TestMoney_AddSubtractRoundTrip(t *testing.T) {
	amounts := []string{"0", "0.01", "1.99", "10.005", "12345.67", "3.333"}
	for _, x := range amounts {
		for _, y := range amounts {
			a := mustMoney(t, x, USD)
			b := mustMoney(t, y, USD)
			sum, err := a.Add(b)
			require.NoError(t, err)
			back, err := sum.Sub(b)
			require.NoError(t, err)
			assert.True(t, back.Equal(a), "%s + %s - %s", x, y, y)
		}
	}
}

func TestMoney_CrossCurrency(t *testing.T) {
	eur := mustMoney(t, "1.00", EUR)
	usd := mustMoney(t, "1.00", USD)

	_, err := eur.Add(usd)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = eur.Sub(usd)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_SubBelowZero(t *testing.T) {
	_, err := mustMoney(t, "1.00", EUR).Sub(mustMoney(t, "2.00", EUR))
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestMoney_Mul(t *testing.T) {
	m, err := mustMoney(t, "2.50", EUR).Mul(3)
	require.NoError(t, err)
	assert.Equal(t, "7.50 EUR", m.String())

	_, err = mustMoney(t, "2.50", EUR).Mul(-1)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestMoney_MarshalJSON(t *testing.T) {
	data, err := mustMoney(t, "3", USD).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"3.00","currency":"USD"}`, string(data))
}

func TestMoney_UnmarshalJSON(t *testing.T) {
	var m Money
	require.NoError(t, m.UnmarshalJSON([]byte(`{"amount":"12.345","currency":"eur"}`)))
	assert.True(t, m.Equal(mustMoney(t, "12.34", EUR)))

	assert.ErrorIs(t, m.UnmarshalJSON([]byte(`{"amount":"-1","currency":"EUR"}`)), ErrNegativeAmount)
	assert.ErrorIs(t, m.UnmarshalJSON([]byte(`{"amount":"1"}`)), ErrInvalidCurrency)
}
