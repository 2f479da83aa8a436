package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDecimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     int64
		wantCode string
	}{
		{"rupees", "50000.00", INR, 5000000, INR},
		{"rounds half up", "10.005", GBP, 1001, GBP},
		{"negative", "-1200.50", EUR, -120050, EUR},
		{"unknown currency", "1.00", "XXX1", 100, USD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFromDecimal(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, tt.wantCode, m.Currency())
		})
	}
}

func TestNewFromFloat(t *testing.T) {
	assert.Equal(t, int64(48800), NewFromFloat(488.0, GBP).Amount())
	assert.Equal(t, int64(30), NewFromFloat(0.1+0.2, USD).Amount())
}

func TestArithmetic(t *testing.T) {
	a := New(1000, GBP)
	b := New(250, GBP)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.Amount())

	diff, err := b.Subtract(a)
	require.NoError(t, err)
	assert.Equal(t, int64(-750), diff.Amount())
	assert.True(t, diff.ToDecimal().IsNegative())

	_, err = a.Add(New(1, INR))
	assert.Error(t, err)

	var nilMoney *Money
	got, err := nilMoney.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, int64(-250), got.Amount())
}

func TestDisplay(t *testing.T) {
	assert.Contains(t, New(123456, USD).Display(), "1,234.56")
	assert.Contains(t, New(1200, GBP).Display(), "£")
	assert.Equal(t, "1234.56", New(123456, USD).String())
	assert.Equal(t, "0.00", (*Money)(nil).Display())
}

func TestCurrencyForBank(t *testing.T) {
	assert.Equal(t, INR, CurrencyForBank("hdfc", USD))
	assert.Equal(t, GBP, CurrencyForBank("BARCLAYS", USD))
	assert.Equal(t, EUR, CurrencyForBank("UNKNOWN", EUR))
}

func TestTotals(t *testing.T) {
	totals := NewTotals(INR)
	require.NoError(t, totals.Add(0, 50000))
	require.NoError(t, totals.Add(1200, 0))
	require.NoError(t, totals.Add(0.1, 0))

	assert.Equal(t, 3, totals.Count)
	assert.Equal(t, "1200.10", totals.Debits.String())
	assert.Equal(t, "50000.00", totals.Credits.String())
	assert.Equal(t, "48799.90", totals.Net().String())
}
