package candidates

import "regexp"

// Boilerplate that must never be merged into a transaction description.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^page\s*\d+(\s*(of|/)\s*\d+)?$`),
	regexp.MustCompile(`(?i)\bpage\s+\d+\s+of\s+\d+\b`),
	regexp.MustCompile(`(?i)^(statement\s+of\s+account|account\s+statement|statement\s+period)\b`),
	regexp.MustCompile(`(?i)\b(closing|opening|available|ledger)\s+balance\b`),
	regexp.MustCompile(`(?i)^(grand\s+)?(totals?|sub\s*-?\s*total)\b`),
	regexp.MustCompile(`(?i)\b(brought|carried)\s+forward\b|\bb/f\b|\bc/f\b`),
	regexp.MustCompile(`(?i)\b(computer|system)\s+generated\b|\bdoes\s+not\s+require\s+(a\s+)?signature\b`),
	regexp.MustCompile(`(?i)\b(disclaimer|terms\s+and\s+conditions|please\s+(note|contact|review|verify))\b`),
	regexp.MustCompile(`(?i)\b(registered|corporate)\s+office\b|\bcustomer\s+care\b|\btoll[\s-]free\b`),
	regexp.MustCompile(`(?i)\bwww\.|https?://`),
	regexp.MustCompile(`(?i)\b(gstin|cin)\s*[:\-]?\s*[a-z0-9]{10,}`),
	regexp.MustCompile(`(?i)^\*+\s*end\s+of\s+statement|\bend\s+of\s+statement\b`),
	regexp.MustCompile(`(?i)\b(statement|account)\s+summary\b|\b(dr|cr)\s+count\b`),
	regexp.MustCompile(`(?i)^(continued|contd\.?)(\s|$)`),
	regexp.MustCompile(`(?i)\bbank\s+(limited|ltd\.?|plc)\b`),
	regexp.MustCompile(`(?i)\b(ifsc|micr|swift)\s*(code)?\s*[:\-]`),
	regexp.MustCompile(`(?i)\b(financial\s+services\s+compensation|authorised\s+by\s+the\s+prudential|deposit\s+insurance)\b`),
	regexp.MustCompile(`(?i)^(abbreviations|legends?)\s*[:\-]`),
}

var openingBalanceRow = regexp.MustCompile(`(?i)\b(opening\s+balance|balance\s+(brought\s+forward|b/f)|brought\s+forward|b/f)\b`)

var closingRow = regexp.MustCompile(`(?i)\b(closing\s+balance|balance\s+carried\s+forward|carried\s+forward|c/f|total)\b`)

// IsNoise reports whether a continuation row is boilerplate.
func IsNoise(text string) bool {
	for _, re := range noisePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
