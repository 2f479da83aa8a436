package normalizer

import (
	"regexp"
	"strings"
)

// overrideConfidence is assigned to names captured by a bank pattern.
const overrideConfidence = 0.95

// BankOverride applies a few narration patterns specific to one bank
// before delegating to the default scorer.
type BankOverride struct {
	Code     string
	patterns []*regexp.Regexp
	fallback *DefaultScorer
}

func (o *BankOverride) Extract(description string) Entity {
	text := strings.TrimSpace(description)
	for _, re := range o.patterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		name := survivors(m[1])
		if name == "" {
			continue
		}
		return o.fallback.classifyName(name, overrideConfidence)
	}
	return o.fallback.Extract(description)
}

func bankOverrides(fallback *DefaultScorer) []*BankOverride {
	return []*BankOverride{
		{
			Code: "HDFC",
			patterns: []*regexp.Regexp{
				// UPI-RAVI KUMAR-ravi.k@okhdfcbank-HDFC0001234-412345678901-NOTE
				regexp.MustCompile(`(?i)^UPI-([^-@]+?)-[^-]*@`),
				// NEFT CR-ICIC0000001-ACME SOFTWARE PVT LTD-...
				regexp.MustCompile(`(?i)^NEFT\s*(?:CR|DR)-[A-Z]{4}0[A-Z0-9]{6}-([^-]+)-`),
			},
			fallback: fallback,
		},
		{
			Code: "ICICI",
			patterns: []*regexp.Regexp{
				// UPI/412345678901/Payment/ravi@oksbi/RAVI KUMAR
				regexp.MustCompile(`(?i)^UPI/\d{6,}/[^/]*/[^/]*@[^/]*/([^/]+)`),
				// MMT/IMPS/412345678901/RAVI KUMAR/HDFC
				regexp.MustCompile(`(?i)^MMT/IMPS/\d+/([^/]+)/`),
			},
			fallback: fallback,
		},
		{
			Code: "SBI",
			patterns: []*regexp.Regexp{
				// TO TRANSFER-UPI/DR/412345678901/RAVI KUMAR/SBIN/...
				regexp.MustCompile(`(?i)TRANSFER-UPI/(?:DR|CR)/\d+/([^/]+)/`),
				// BY TRANSFER-NEFT*HDFC0000001*N123456*ACME CORP
				regexp.MustCompile(`(?i)TRANSFER-NEFT\*[^*]*\*[^*]*\*([^*-]+)`),
			},
			fallback: fallback,
		},
	}
}

// Registry maps bank codes to entity extractors. It is built once and read
// concurrently afterwards.
type Registry struct {
	fallback   *DefaultScorer
	extractors map[string]EntityExtractor
}

// NewRegistry builds the dispatch table around scorer.
func NewRegistry(scorer *DefaultScorer) *Registry {
	r := &Registry{fallback: scorer, extractors: make(map[string]EntityExtractor)}
	for _, o := range bankOverrides(scorer) {
		r.extractors[o.Code] = o
	}
	return r
}

// ExtractorFor returns the extractor for a bank code. Unmapped codes get
// the default scorer.
func (r *Registry) ExtractorFor(code string) EntityExtractor {
	if e, ok := r.extractors[strings.ToUpper(code)]; ok {
		return e
	}
	return r.fallback
}
