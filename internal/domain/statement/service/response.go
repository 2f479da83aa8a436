package service

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
)

// Status is the outcome class of one document.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusFailed        Status = "failed"
	StatusNeedsPassword Status = "needs_password"
)

// Result quality values for metadata["result_quality"].
const (
	QualityComplete       = "complete"
	QualityPartialSuccess = "partial_success"
)

// Metadata keys.
const (
	MetaDocumentFlavor       = "document_flavor"
	MetaValidation           = "validation"
	MetaPageCount            = "page_count"
	MetaRawRowsSample        = "raw_rows_sample"
	MetaRawCandidates        = "raw_candidates"
	MetaAccountNumber        = "account_number"
	MetaOpeningBalance       = "opening_balance"
	MetaOpeningBalanceSource = "opening_balance_source"
	MetaDeclaredSummary      = "declared_summary"
	MetaResultQuality        = "result_quality"
	MetaDiagnostics          = "diagnostics"
	MetaSkippedPages         = "skipped_pages"
	MetaPersistError         = "persist_error"
	MetaStats                = "stats"
	MetaBankScore            = "bank_detection_score"
)

// rawRowsSampleSize caps metadata["raw_rows_sample"].
const rawRowsSampleSize = 20

// Response is the caller-facing result. Field names are a compatibility
// surface.
type Response struct {
	Status        Status         `json:"status"`
	StatementID   string         `json:"statement_id"`
	Bank          string         `json:"bank"`
	AccountHolder string         `json:"account_holder"`
	Metadata      map[string]any `json:"metadata"`
	Transactions  []Transaction  `json:"transactions"`
	Error         string         `json:"error,omitempty"`
}

// Transaction is one output transaction. Amount is signed: credits are
// positive, debits negative.
type Transaction struct {
	Date          string   `json:"date"`
	DateISO       string   `json:"date_iso"`
	Description   string   `json:"description"`
	Amount        float64  `json:"amount"`
	Debit         float64  `json:"debit"`
	Credit        float64  `json:"credit"`
	Balance       *float64 `json:"balance"`
	Confidence    float64  `json:"confidence"`
	Reasons       []string `json:"reasons"`
	BankCode      string   `json:"bankCode"`
	AccountNumber string   `json:"accountNumber"`
	Store         string   `json:"store"`
	PersonName    string   `json:"personName"`
	Commodity     string   `json:"commodity"`
}

// Validation is the JSON form of artifact.ValidationResult.
type Validation struct {
	Valid            bool       `json:"valid"`
	Reconciled       bool       `json:"reconciled"`
	Mismatches       []Mismatch `json:"mismatches"`
	MismatchCount    int        `json:"mismatch_count"`
	NegativeAmounts  int        `json:"negative_amounts"`
	OpeningBalance   float64    `json:"opening_balance"`
	ClosingBalance   float64    `json:"closing_balance"`
	TotalDebits      float64    `json:"total_debits"`
	TotalCredits     float64    `json:"total_credits"`
	TransactionCount int        `json:"transaction_count"`
}

// Mismatch is one broken balance link.
type Mismatch struct {
	Index      int     `json:"index"`
	Date       string  `json:"date"`
	Expected   float64 `json:"expected"`
	Actual     float64 `json:"actual"`
	Difference float64 `json:"difference"`
}

// DeclaredSummary is a summary table printed on the statement.
type DeclaredSummary struct {
	Opening float64 `json:"opening"`
	Debits  float64 `json:"debits"`
	Credits float64 `json:"credits"`
	Closing float64 `json:"closing"`
}

func toTransaction(tx artifact.FinalTransaction) Transaction {
	out := Transaction{
		Date:          tx.Date,
		DateISO:       tx.DateISO,
		Description:   tx.Description,
		Amount:        tx.Amount().InexactFloat64(),
		Debit:         tx.Debit.InexactFloat64(),
		Credit:        tx.Credit.InexactFloat64(),
		Confidence:    tx.Confidence,
		Reasons:       append([]string{}, tx.Reasons...),
		BankCode:      tx.BankCode,
		AccountNumber: tx.AccountNumber,
		Store:         tx.Store,
		PersonName:    tx.Person,
		Commodity:     tx.Commodity,
	}
	if tx.Balance.Valid {
		b := tx.Balance.Decimal.InexactFloat64()
		out.Balance = &b
	}
	return out
}

func toValidation(v artifact.ValidationResult) Validation {
	out := Validation{
		Valid:            v.Valid,
		Reconciled:       v.Reconciled,
		Mismatches:       make([]Mismatch, 0, len(v.Mismatches)),
		MismatchCount:    v.MismatchCount,
		NegativeAmounts:  v.NegativeAmounts,
		OpeningBalance:   v.OpeningBalance.InexactFloat64(),
		ClosingBalance:   v.ClosingBalance.InexactFloat64(),
		TotalDebits:      v.TotalDebits.InexactFloat64(),
		TotalCredits:     v.TotalCredits.InexactFloat64(),
		TransactionCount: v.TransactionCount,
	}
	for _, m := range v.Mismatches {
		out.Mismatches = append(out.Mismatches, Mismatch{
			Index:      m.Index,
			Date:       m.Date,
			Expected:   m.Expected.InexactFloat64(),
			Actual:     m.Actual.InexactFloat64(),
			Difference: m.Difference.InexactFloat64(),
		})
	}
	return out
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
