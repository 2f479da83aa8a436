package sanitizer

import (
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/diagnostics"
)

// Word metadata keys written by the sanitizer.
const (
	MetaNormalizedNumeral = "normalized_numeral"
	MetaSuspicious        = "suspicious"
	MetaNormalizedDate    = "normalized_date"
)

// DefaultLowConfidence is the confidence below which words are logged.
const DefaultLowConfidence = 0.6

// Sanitizer normalizes numeric and date tokens in place and reports
// low-confidence words to a diagnostic sink.
type Sanitizer struct {
	sink      diagnostics.Sink
	threshold float64
}

// New returns a sanitizer. A nil sink discards diagnostics; a non-positive
// threshold uses DefaultLowConfidence.
func New(sink diagnostics.Sink, threshold float64) *Sanitizer {
	if sink == nil {
		sink = diagnostics.Discard{}
	}
	if threshold <= 0 {
		threshold = DefaultLowConfidence
	}
	return &Sanitizer{sink: sink, threshold: threshold}
}

// Stats counts what a sanitize pass touched.
type Stats struct {
	Numerals   int
	Dates      int
	Suspicious int
	Logged     int
}

// SanitizePage annotates page words. Text and geometry are left untouched.
func (s *Sanitizer) SanitizePage(statementID string, page *artifact.PageArtifact) (Stats, error) {
	var (
		stats   Stats
		entries []diagnostics.Entry
	)

	for i := range page.Words {
		w := &page.Words[i]
		reason := ""

		switch {
		case IsDate(w.Text):
			w.SetMeta(MetaNormalizedDate, ToISO(w.Text))
			stats.Dates++
		case LooksNumeric(w.Text):
			n := ParseNumeral(w.Text)
			if n.Suspicious {
				w.LowerConfidence(w.Confidence * 0.5)
				w.SetMeta(MetaSuspicious, n.Reason)
				reason = n.Reason
				stats.Suspicious++
				break
			}
			if n.Valid {
				w.SetMeta(MetaNormalizedNumeral, n.Value.String())
				stats.Numerals++
			}
		}

		if w.Confidence < s.threshold {
			if reason == "" {
				reason = "low_confidence"
			}
			entries = append(entries, diagnostics.Entry{
				StatementID: statementID,
				Stage:       "sanitize",
				Page:        w.Page,
				Text:        w.Text,
				Confidence:  w.Confidence,
				Reason:      reason,
			})
		}
	}

	stats.Logged = len(entries)
	if err := s.sink.Append(entries...); err != nil {
		return stats, err
	}
	return stats, nil
}
