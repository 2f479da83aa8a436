// Package reconcile checks that the balances of an inferred transaction list
// are arithmetically consistent with its amounts. Results are advisory.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
)

// MaxReportedMismatches caps the mismatch sample.
const MaxReportedMismatches = 5

var (
	linkTolerance  = decimal.RequireFromString("0.05")
	totalTolerance = decimal.RequireFromString("0.1")
)

// Validate reconciles txs in document order. It never modifies txs.
func Validate(txs []artifact.FinalTransaction) artifact.ValidationResult {
	res := artifact.ValidationResult{
		Valid:            true,
		Mismatches:       []artifact.Mismatch{},
		TransactionCount: len(txs),
	}
	if len(txs) == 0 {
		return res
	}

	var prev decimal.NullDecimal
	for i, tx := range txs {
		if tx.Debit.IsNegative() || tx.Credit.IsNegative() {
			res.NegativeAmounts++
		}
		res.TotalDebits = res.TotalDebits.Add(tx.Debit)
		res.TotalCredits = res.TotalCredits.Add(tx.Credit)

		if prev.Valid && tx.Balance.Valid {
			expected := prev.Decimal.Add(tx.Credit).Sub(tx.Debit)
			diff := tx.Balance.Decimal.Sub(expected)
			if diff.Abs().GreaterThan(linkTolerance) {
				res.MismatchCount++
				if len(res.Mismatches) < MaxReportedMismatches {
					res.Mismatches = append(res.Mismatches, artifact.Mismatch{
						Index:      i,
						Date:       tx.Date,
						Expected:   expected,
						Actual:     tx.Balance.Decimal,
						Difference: diff,
					})
				}
			}
		}
		if tx.Balance.Valid {
			prev = tx.Balance
		}
	}

	first, last, ok := balanceBounds(txs)
	if ok {
		// Opening is the first balance with its own movement undone.
		res.OpeningBalance = first.Balance.Decimal.Sub(first.Credit).Add(first.Debit)
		res.ClosingBalance = last.Balance.Decimal
		expectedClose := res.OpeningBalance.Add(res.TotalCredits).Sub(res.TotalDebits)
		res.Reconciled = expectedClose.Sub(res.ClosingBalance).Abs().LessThanOrEqual(totalTolerance)
	}

	res.Valid = res.MismatchCount == 0 && res.NegativeAmounts == 0 && (!ok || res.Reconciled)
	return res
}

// balanceBounds finds the first and last transactions carrying a balance.
// The end-to-end check only holds when those are the list's own ends.
func balanceBounds(txs []artifact.FinalTransaction) (first, last artifact.FinalTransaction, ok bool) {
	if !txs[0].Balance.Valid || !txs[len(txs)-1].Balance.Valid {
		return first, last, false
	}
	return txs[0], txs[len(txs)-1], true
}
