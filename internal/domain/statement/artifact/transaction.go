package artifact

import "github.com/shopspring/decimal"

// Candidate is an unvalidated, possibly multi-line transaction before
// polarity inference.
type Candidate struct {
	DateRaw     string
	Description string
	Debit       decimal.NullDecimal
	Credit      decimal.NullDecimal
	Balance     decimal.NullDecimal
	// Amount is a single signed value from an AMOUNT column.
	Amount   decimal.NullDecimal
	Page     int
	RowIndex int
}

// HasExplicitAmount reports whether any debit, credit or amount was read.
func (c Candidate) HasExplicitAmount() bool {
	return nonZero(c.Debit) || nonZero(c.Credit) || nonZero(c.Amount)
}

func nonZero(v decimal.NullDecimal) bool {
	return v.Valid && !v.Decimal.IsZero()
}

// FinalTransaction is an inferred transaction. Only the normalization stage
// mutates it after inference.
type FinalTransaction struct {
	Date          string
	DateISO       string
	Description   string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Balance       decimal.NullDecimal
	Confidence    float64
	Reasons       []string
	BankCode      string
	AccountNumber string
	Store         string
	Person        string
	Commodity     string
	// EntityConfidence is the score of the extracted store or person.
	EntityConfidence float64
}

// Amount is credit minus debit.
func (t FinalTransaction) Amount() decimal.Decimal {
	return t.Credit.Sub(t.Debit)
}

// Mismatch is one broken balance link between consecutive transactions.
type Mismatch struct {
	Index      int             `json:"index"`
	Date       string          `json:"date"`
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
	Difference decimal.Decimal `json:"difference"`
}

// ValidationResult summarises reconciliation over a transaction list.
type ValidationResult struct {
	Valid            bool            `json:"valid"`
	Reconciled       bool            `json:"reconciled"`
	Mismatches       []Mismatch      `json:"mismatches"`
	MismatchCount    int             `json:"mismatch_count"`
	NegativeAmounts  int             `json:"negative_amounts"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	TotalDebits      decimal.Decimal `json:"total_debits"`
	TotalCredits     decimal.Decimal `json:"total_credits"`
	TransactionCount int             `json:"transaction_count"`
}
