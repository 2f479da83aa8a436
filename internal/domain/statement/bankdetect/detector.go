// Package bankdetect guesses the issuing bank from first-page text and pulls
// account-level identity fields from the statement header.
package bankdetect

import (
	"sort"
	"strings"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/pkg/keywords"
)

// Evidence sources reported in Detection.Source.
const (
	SourceProfile = "profile"
	SourceBuiltin = "builtin"
)

// Detection is the outcome of scoring one statement.
type Detection struct {
	BankCode      string
	Score         int
	Source        string
	AccountHolder string
	AccountNumber string
	HeaderFields  map[string]string
	// Scores holds every non-zero candidate score, for diagnostics.
	Scores map[string]int
}

// Detector scores first-page text against bank profiles and the built-in
// bank table. It is safe for concurrent use.
type Detector struct {
	keywords *keywords.Matcher
}

// NewDetector compiles the built-in keyword table.
func NewDetector() *Detector {
	var entries []keywords.Entry
	for _, b := range builtinBanks {
		for _, kw := range b.Keywords {
			entries = append(entries, keywords.Entry{Keyword: kw, Value: b.Code, Weight: keywordWeight})
		}
	}
	return &Detector{keywords: keywords.NewMatcher(entries)}
}

// Detect scores the page. Profiles are consulted first: when any profile
// keyword matches, the best profile decides and the built-in table is not
// used. Ties and zero scores resolve to artifact.UnknownBank.
func (d *Detector) Detect(page *artifact.PageArtifact, profiles []artifact.BankProfile) Detection {
	text := ""
	if page != nil {
		text = page.Text()
	}

	det := Detection{
		BankCode:      artifact.UnknownBank,
		AccountHolder: ExtractHolder(text),
		AccountNumber: ExtractAccountNumber(text),
		HeaderFields:  ExtractFields(text),
	}
	if strings.TrimSpace(text) == "" {
		return det
	}

	if scores := scoreProfiles(text, profiles); len(scores) > 0 {
		det.Scores = scores
		det.BankCode, det.Score = pickWinner(scores)
		det.Source = SourceProfile
		return det
	}

	scores := d.scoreBuiltin(text)
	if len(scores) == 0 {
		return det
	}
	det.Scores = scores
	det.BankCode, det.Score = pickWinner(scores)
	det.Source = SourceBuiltin
	return det
}

func scoreProfiles(text string, profiles []artifact.BankProfile) map[string]int {
	if len(profiles) == 0 {
		return nil
	}
	var entries []keywords.Entry
	for _, p := range profiles {
		for _, kw := range p.Keywords {
			entries = append(entries, keywords.Entry{Keyword: kw, Value: p.Code, Weight: profileWeight})
		}
	}
	return tally(keywords.NewMatcher(entries).Match(text))
}

func (d *Detector) scoreBuiltin(text string) map[string]int {
	scores := tally(d.keywords.Match(text))
	if scores == nil {
		scores = make(map[string]int)
	}
	upper := strings.ToUpper(text)
	for _, b := range builtinBanks {
		for _, name := range b.Names {
			if keywords.FuzzyContains(upper, name, 1) {
				scores[b.Code] += nameWeight
			}
		}
		for _, re := range b.Patterns {
			if re.MatchString(upper) {
				scores[b.Code] += patternWeight
			}
		}
	}
	for code, s := range scores {
		if s == 0 {
			delete(scores, code)
		}
	}
	return scores
}

func tally(hits []keywords.Hit) map[string]int {
	if len(hits) == 0 {
		return nil
	}
	scores := make(map[string]int)
	for _, h := range hits {
		scores[h.Value] += h.Weight
	}
	return scores
}

// pickWinner returns the top-scoring code, or unknown on a tie.
func pickWinner(scores map[string]int) (string, int) {
	codes := make([]string, 0, len(scores))
	for c := range scores {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool {
		if scores[codes[i]] != scores[codes[j]] {
			return scores[codes[i]] > scores[codes[j]]
		}
		return codes[i] < codes[j]
	})
	if len(codes) == 0 {
		return artifact.UnknownBank, 0
	}
	best := scores[codes[0]]
	if len(codes) > 1 && scores[codes[1]] == best {
		return artifact.UnknownBank, best
	}
	return codes[0], best
}
