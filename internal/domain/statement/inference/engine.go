// Package inference decides the amount and polarity of every candidate.
// Running-balance deltas are the primary evidence; explicit debit/credit
// columns are the fallback and description keywords only corroborate.
package inference

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/sanitizer"
)

// Inference reasons.
const (
	ReasonDeltaPositive  = "balance_delta_positive"
	ReasonDeltaNegative  = "balance_delta_negative"
	ReasonDeltaZero      = "balance_delta_zero"
	ReasonExplicitDebit  = "explicit_column_debit"
	ReasonExplicitCredit = "explicit_column_credit"
	ReasonExplicitAmount = "explicit_column_amount"
	ReasonKeywordCredit  = "keyword_credit"
	ReasonKeywordDebit   = "keyword_debit"
	ReasonNoMovement     = "no_movement"
)

// Confidence per evidence kind.
const (
	DeltaConfidence      = 0.98
	ExplicitConfidence   = 0.85
	NoMovementConfidence = 0.6
)

var deltaEpsilon = decimal.RequireFromString("0.009")

var (
	creditKeyword = regexp.MustCompile(`\b(CR|CREDIT)\b`)
	debitKeyword  = regexp.MustCompile(`\b(DR|DEBIT)\b`)
)

// Stamp carries document-level fields copied onto every transaction.
type Stamp struct {
	BankCode      string
	AccountNumber string
}

// Result is the output of one inference pass.
type Result struct {
	Transactions []artifact.FinalTransaction
	// Discarded counts zero-delta rows without explicit amounts.
	Discarded int
	// Dropped counts candidates with no amount and no balance.
	Dropped int
}

// Engine applies balance-driven inference. It holds no state between calls.
type Engine struct{}

// NewEngine returns an engine.
func NewEngine() *Engine { return &Engine{} }

// Infer processes candidates in document order carrying the running balance.
func (e *Engine) Infer(cands []artifact.Candidate, opening OpeningBalance, stamp Stamp) Result {
	var res Result
	prev := opening.Value

	for _, c := range cands {
		var (
			debit, credit decimal.Decimal
			assigned      bool
			confidence    float64
			reasons       []string
		)

		if prev.Valid && c.Balance.Valid {
			delta := c.Balance.Decimal.Sub(prev.Decimal)
			switch {
			case delta.GreaterThan(deltaEpsilon):
				credit = delta
				assigned = true
				confidence = DeltaConfidence
				reasons = append(reasons, ReasonDeltaPositive)
			case delta.LessThan(deltaEpsilon.Neg()):
				debit = delta.Abs()
				assigned = true
				confidence = DeltaConfidence
				reasons = append(reasons, ReasonDeltaNegative)
			case !c.HasExplicitAmount():
				res.Discarded++
				prev = c.Balance
				continue
			default:
				reasons = append(reasons, ReasonDeltaZero)
			}
		}

		if !assigned {
			var found []string
			debit, credit, found = explicit(c)
			if len(found) > 0 {
				assigned = true
				confidence = ExplicitConfidence
				reasons = append(reasons, found...)
			}
		}

		reasons = append(reasons, keywordReasons(c.Description)...)

		if !assigned {
			if c.DateRaw == "" || !c.Balance.Valid {
				res.Dropped++
				if c.Balance.Valid {
					prev = c.Balance
				}
				continue
			}
			confidence = NoMovementConfidence
			reasons = append(reasons, ReasonNoMovement)
		}

		res.Transactions = append(res.Transactions, artifact.FinalTransaction{
			Date:          c.DateRaw,
			DateISO:       sanitizer.ToISO(c.DateRaw),
			Description:   strings.TrimSpace(c.Description),
			Debit:         debit,
			Credit:        credit,
			Balance:       c.Balance,
			Confidence:    confidence,
			Reasons:       reasons,
			BankCode:      stamp.BankCode,
			AccountNumber: stamp.AccountNumber,
		})

		if c.Balance.Valid {
			prev = c.Balance
		}
	}
	return res
}

// explicit reads the candidate's own debit, credit or signed amount.
func explicit(c artifact.Candidate) (debit, credit decimal.Decimal, reasons []string) {
	if c.Debit.Valid && !c.Debit.Decimal.IsZero() {
		debit = c.Debit.Decimal.Abs()
		reasons = append(reasons, ReasonExplicitDebit)
	}
	if c.Credit.Valid && !c.Credit.Decimal.IsZero() {
		credit = c.Credit.Decimal.Abs()
		reasons = append(reasons, ReasonExplicitCredit)
	}
	if len(reasons) == 0 && c.Amount.Valid && !c.Amount.Decimal.IsZero() {
		if c.Amount.Decimal.IsNegative() {
			debit = c.Amount.Decimal.Abs()
		} else {
			credit = c.Amount.Decimal
		}
		reasons = append(reasons, ReasonExplicitAmount)
	}
	return debit, credit, reasons
}

func keywordReasons(description string) []string {
	upper := strings.ToUpper(description)
	var out []string
	if creditKeyword.MatchString(upper) {
		out = append(out, ReasonKeywordCredit)
	}
	if debitKeyword.MatchString(upper) {
		out = append(out, ReasonKeywordDebit)
	}
	return out
}
