package inference

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/sanitizer"
)

// Opening balance sources.
const (
	SourceSummary = "summary"
	SourceLabel   = "label"
	SourceHint    = "candidate_hint"
)

// Summary is a declared statement summary table.
type Summary struct {
	Opening decimal.Decimal `json:"opening"`
	Debits  decimal.Decimal `json:"debits"`
	Credits decimal.Decimal `json:"credits"`
	Closing decimal.Decimal `json:"closing"`
}

// OpeningBalance is the balance before the first transaction.
type OpeningBalance struct {
	Value   decimal.NullDecimal
	Source  string
	Summary *Summary
}

const moneyPattern = `(-?[\d,]+\.\d{2}(?:\s*(?:cr|dr))?)`

// "Opening Balance  Dr Count  Cr Count  Debits  Credits  Closing Bal" with
// the values on the following line.
var summaryPattern = regexp.MustCompile(`(?is)opening\s+balance[^\n]{0,80}?closing\s+bal(?:ance)?[^\n]*\n\s*` +
	moneyPattern + `\s+(?:\d+\s+\d+\s+)?` + moneyPattern + `\s+` + moneyPattern + `\s+` + moneyPattern)

var currency = `(?:₹|rs\.?|inr|£|\$|€)?\s*`

// Ordered; the first match wins.
var openingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)opening\s+balance\s*(?:as\s+(?:on|of)\s+\S+\s*)?[:\-]?\s*` + currency + moneyPattern),
	regexp.MustCompile(`(?i)balance\s+(?:brought\s+forward|b/f)\s*[:\-]?\s*` + currency + moneyPattern),
	regexp.MustCompile(`(?i)(?:previous|start(?:ing)?)\s+balance\s*[:\-]?\s*` + currency + moneyPattern),
}

// DetectOpeningBalance looks for a declared opening balance in page text.
// The summary table is tried first since it also yields the totals.
func DetectOpeningBalance(pages []*artifact.PageArtifact) OpeningBalance {
	var sb strings.Builder
	for _, p := range pages {
		sb.WriteString(p.Text())
		sb.WriteByte('\n')
	}
	text := sb.String()

	if m := summaryPattern.FindStringSubmatch(text); m != nil {
		vals := make([]decimal.Decimal, 4)
		ok := true
		for i := range vals {
			n := sanitizer.ParseNumeral(m[i+1])
			if !n.Valid || n.Suspicious {
				ok = false
				break
			}
			vals[i] = n.Value
		}
		if ok {
			return OpeningBalance{
				Value:   decimal.NewNullDecimal(vals[0]),
				Source:  SourceSummary,
				Summary: &Summary{Opening: vals[0], Debits: vals[1], Credits: vals[2], Closing: vals[3]},
			}
		}
	}

	for _, re := range openingPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n := sanitizer.ParseNumeral(m[1]); n.Valid && !n.Suspicious {
				return OpeningBalance{Value: decimal.NewNullDecimal(n.Value), Source: SourceLabel}
			}
		}
	}
	return OpeningBalance{}
}

// WithHint falls back to a balance seen on an opening-balance table row.
func (o OpeningBalance) WithHint(hint decimal.NullDecimal) OpeningBalance {
	if o.Value.Valid || !hint.Valid {
		return o
	}
	return OpeningBalance{Value: hint, Source: SourceHint}
}
