// Package money formats statement amounts for display. Arithmetic runs on
// integer minor units through go-money; conversion from the pipeline's
// decimals goes through shopspring/decimal.
package money

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	INR = "INR" // Indian Rupee
	GBP = "GBP" // British Pound
	EUR = "EUR" // Euro
	USD = "USD" // US Dollar
)

// bankCurrencies maps detected bank codes to their statement currency.
var bankCurrencies = map[string]string{
	"HDFC":     INR,
	"ICICI":    INR,
	"SBI":      INR,
	"AXIS":     INR,
	"KOTAK":    INR,
	"HSBC":     GBP,
	"BARCLAYS": GBP,
	"METRO":    GBP,
}

// CurrencyForBank returns the currency for a bank code, or fallback.
func CurrencyForBank(bankCode, fallback string) string {
	if c, ok := bankCurrencies[strings.ToUpper(bankCode)]; ok {
		return c
	}
	return fallback
}

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a new Money value from minor units and currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyCode)}
}

// NewFromDecimal creates Money from a decimal.Decimal value, rounding to
// the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currencyCode = USD
		currency = money.GetCurrency(USD)
	}
	multiplier := decimal.New(1, int32(currency.Fraction))
	return New(amount.Mul(multiplier).Round(0).IntPart(), currencyCode)
}

// NewFromFloat creates Money from a float, going through decimal.
func NewFromFloat(amount float64, currencyCode string) *Money {
	return NewFromDecimal(decimal.NewFromFloat(amount), currencyCode)
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Amount returns the value in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return USD
	}
	return m.m.Currency().Code
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Subtract subtracts other from m. Returns error if currencies don't match.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if other == nil || other.m == nil {
		return m, nil
	}
	if m == nil || m.m == nil {
		return &Money{m: other.m.Negative()}, nil
	}
	result, err := m.m.Subtract(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Display returns a formatted string for display (e.g., "₹1,234.56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.m.Display()
}

// String returns the amount as a decimal string (e.g., "1234.56")
func (m *Money) String() string {
	return m.ToDecimal().StringFixed(2)
}

// ToDecimal converts to decimal.Decimal
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	divisor := decimal.New(1, int32(m.m.Currency().Fraction))
	return decimal.NewFromInt(m.m.Amount()).Div(divisor)
}

// Totals accumulates the money flow of one statement.
type Totals struct {
	Currency string
	Debits   *Money
	Credits  *Money
	Count    int
}

// NewTotals starts empty totals in currency.
func NewTotals(currency string) *Totals {
	return &Totals{Currency: currency, Debits: Zero(currency), Credits: Zero(currency)}
}

// Add records one transaction's debit and credit.
func (t *Totals) Add(debit, credit float64) error {
	d, err := t.Debits.Add(NewFromFloat(debit, t.Currency))
	if err != nil {
		return err
	}
	c, err := t.Credits.Add(NewFromFloat(credit, t.Currency))
	if err != nil {
		return err
	}
	t.Debits, t.Credits = d, c
	t.Count++
	return nil
}

// Net is credits minus debits.
func (t *Totals) Net() *Money {
	net, err := t.Credits.Subtract(t.Debits)
	if err != nil {
		return Zero(t.Currency)
	}
	return net
}
