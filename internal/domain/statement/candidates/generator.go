// Package candidates walks table rows and assembles raw, possibly multi-line
// transaction candidates from geometry alone.
package candidates

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/columns"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/sanitizer"
)

// DefaultMargin widens column bands when assigning tokens.
const DefaultMargin = 2.0

// Result is the output of a generation pass.
type Result struct {
	Candidates []artifact.Candidate
	// OpeningBalanceHint is the balance on an "opening balance" row.
	OpeningBalanceHint decimal.NullDecimal
	RowsScanned        int
	NoiseDropped       int
	HeadersSkipped     int
}

// HeaderDetector recognises header rows repeated on later pages.
type HeaderDetector interface {
	IsHeaderRow(row artifact.Row, profile *artifact.BankProfile) bool
}

// Generator assembles candidates.
type Generator struct {
	headers HeaderDetector
	margin  float64
}

// NewGenerator returns a generator. headers may be nil.
func NewGenerator(headers HeaderDetector) *Generator {
	return &Generator{headers: headers, margin: DefaultMargin}
}

// Generate walks every row below the header in document order. A row with
// a date opens a new candidate; a dateless row extends the open candidate
// unless it is boilerplate. The open candidate is flushed at the end.
func (g *Generator) Generate(pages []*artifact.PageArtifact, mapping artifact.ColumnMapping, header columns.HeaderLocation, profile *artifact.BankProfile) Result {
	var res Result
	if mapping.IsEmpty() {
		return res
	}

	var current *artifact.Candidate
	flush := func() {
		if current != nil {
			res.Candidates = append(res.Candidates, *current)
			current = nil
		}
	}

	for _, page := range pages {
		if page.PageNo < header.Page {
			continue
		}
		for _, row := range page.Rows {
			if page.PageNo == header.Page && row.Index <= header.Row {
				continue
			}
			res.RowsScanned++

			f := g.fields(row, mapping)
			// A dated row is a transaction even when its words read like a header.
			if f.date == "" && g.headers != nil && g.headers.IsHeaderRow(row, profile) {
				res.HeadersSkipped++
				continue
			}
			if f.empty() {
				continue
			}

			if f.date != "" {
				if openingBalanceRow.MatchString(f.description) {
					res.captureOpening(f)
					continue
				}
				if closingRow.MatchString(f.description) && !f.hasFlow() {
					res.NoiseDropped++
					continue
				}
				flush()
				current = &artifact.Candidate{
					DateRaw:     f.date,
					Description: f.description,
					Debit:       f.debit,
					Credit:      f.credit,
					Balance:     f.balance,
					Amount:      f.amount,
					Page:        page.PageNo,
					RowIndex:    row.Index,
				}
				continue
			}

			text := row.Text()
			if openingBalanceRow.MatchString(text) {
				res.captureOpening(f)
				res.NoiseDropped++
				continue
			}
			if IsNoise(text) {
				res.NoiseDropped++
				continue
			}
			if current == nil {
				continue
			}
			mergeContinuation(current, f)
		}
	}
	flush()
	return res
}

func (r *Result) captureOpening(f rowFields) {
	if r.OpeningBalanceHint.Valid {
		return
	}
	v := f.balance
	if !v.Valid {
		v = firstValid(f.amount, f.credit, f.debit)
	}
	r.OpeningBalanceHint = v
}

func mergeContinuation(c *artifact.Candidate, f rowFields) {
	if f.description != "" {
		if c.Description == "" {
			c.Description = f.description
		} else {
			c.Description += " " + f.description
		}
	}
	fill(&c.Debit, f.debit)
	fill(&c.Credit, f.credit)
	fill(&c.Balance, f.balance)
	fill(&c.Amount, f.amount)
}

func fill(dst *decimal.NullDecimal, src decimal.NullDecimal) {
	if !dst.Valid && src.Valid {
		*dst = src
	}
}

func firstValid(vals ...decimal.NullDecimal) decimal.NullDecimal {
	for _, v := range vals {
		if v.Valid {
			return v
		}
	}
	return decimal.NullDecimal{}
}

// rowFields is one row split into role buckets.
type rowFields struct {
	date        string
	description string
	debit       decimal.NullDecimal
	credit      decimal.NullDecimal
	balance     decimal.NullDecimal
	amount      decimal.NullDecimal
}

func (f rowFields) empty() bool {
	return f.date == "" && f.description == "" && !f.hasFlow() && !f.balance.Valid
}

func (f rowFields) hasFlow() bool {
	return f.debit.Valid || f.credit.Valid || f.amount.Valid
}

func (g *Generator) fields(row artifact.Row, mapping artifact.ColumnMapping) rowFields {
	buckets := make(map[artifact.Role][]artifact.WordArtifact)
	for _, w := range row.Words {
		role := mapping.RoleFor(w.Box, g.margin)
		if role == artifact.RoleOther {
			continue
		}
		buckets[role] = append(buckets[role], w)
	}

	var f rowFields
	desc := joinWords(buckets[artifact.RoleDescription])

	if dateText := joinWords(buckets[artifact.RoleDate]); dateText != "" {
		if raw, ok := sanitizer.ExtractDate(dateText); ok {
			f.date = raw
			// Anything else in the date band belongs to the description.
			if rest := strings.TrimSpace(strings.Replace(dateText, raw, "", 1)); rest != "" {
				desc = strings.TrimSpace(rest + " " + desc)
			}
		} else {
			desc = strings.TrimSpace(dateText + " " + desc)
		}
	}
	f.description = desc

	f.debit = amountOf(buckets[artifact.RoleDebit])
	f.credit = amountOf(buckets[artifact.RoleCredit])
	f.balance = amountOf(buckets[artifact.RoleBalance])
	f.amount = amountOf(buckets[artifact.RoleAmount])
	return f
}

// amountOf reads a money bucket, preferring the sanitizer's normalized value.
func amountOf(words []artifact.WordArtifact) decimal.NullDecimal {
	if len(words) == 0 {
		return decimal.NullDecimal{}
	}
	if len(words) == 1 {
		if v := words[0].Meta(sanitizer.MetaNormalizedNumeral); v != "" {
			if d, err := decimal.NewFromString(v); err == nil {
				return decimal.NewNullDecimal(d)
			}
		}
		if words[0].Meta(sanitizer.MetaSuspicious) != "" {
			return decimal.NullDecimal{}
		}
	}
	if d, ok := sanitizer.ParseAmount(joinWords(words)); ok {
		return decimal.NewNullDecimal(d)
	}
	return decimal.NullDecimal{}
}

func joinWords(words []artifact.WordArtifact) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if t := strings.TrimSpace(w.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
