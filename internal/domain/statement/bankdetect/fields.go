package bankdetect

import (
	"regexp"
	"strings"
)

// Header field keys reported in Detection.HeaderFields.
const (
	FieldIFSC            = "ifsc"
	FieldSortCode        = "sort_code"
	FieldStatementPeriod = "statement_period"
	FieldCustomerID      = "customer_id"
	FieldBranch          = "branch"
)

// Ordered label patterns; the first match wins.
var holderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^\s*(?:account\s+holder(?:\s+name)?|a/c\s+holder|customer\s+name|account\s+name|name)\s*[:\-]\s*(?:(?:mr|mrs|ms|m/s|shri|smt)\.?\s+)?([a-z][a-z .'&]{2,60})`),
	regexp.MustCompile(`(?m)^\s*(?:MR|MRS|MS|M/S|SHRI|SMT)\.?\s+([A-Z][A-Z .']{2,60})\s*$`),
}

var accountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:account|a/c|acct)\s*(?:no|number|num|#)?\.?\s*[:\-]?\s*([0-9xX*]{6,20})\b`),
	regexp.MustCompile(`(?i)\baccount\s*[:\-]\s*([0-9]{4}\s?[0-9]{4}\s?[0-9]{0,12})\b`),
}

var fieldPatterns = []struct {
	key string
	re  *regexp.Regexp
}{
	{FieldIFSC, regexp.MustCompile(`\b(?:(?i:ifsc(?:\s+code)?)\s*[:\-]?\s*)?([A-Z]{4}0[A-Z0-9]{6})\b`)},
	{FieldSortCode, regexp.MustCompile(`(?i)\bsort\s*code\s*[:\-]?\s*(\d{2}-\d{2}-\d{2})\b`)},
	{FieldStatementPeriod, regexp.MustCompile(`(?i)\b(?:statement\s+period|period|statement\s+from)\s*[:\-]?\s*(.+?\s+to\s+.+?)\s*$`)},
	{FieldCustomerID, regexp.MustCompile(`(?i)\b(?:customer\s*id|cust\s*id|crn)\s*[:\-]?\s*([A-Z0-9]{4,20})\b`)},
	{FieldBranch, regexp.MustCompile(`(?im)^\s*branch(?:\s+name)?\s*[:\-]\s*([a-z][a-z .,\-]{2,40}?)\s*$`)},
}

// Words that start the next label on the same line.
var labelCut = regexp.MustCompile(`(?i)\s+(?:account|a/c|customer|cust|branch|date|ifsc|address|statement|period|crn)\b.*$`)

// ExtractHolder returns the account holder name, or "".
func ExtractHolder(text string) string {
	for _, re := range holderPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			name := labelCut.ReplaceAllString(m[1], "")
			name = strings.Join(strings.Fields(name), " ")
			if len(name) >= 3 {
				return name
			}
		}
	}
	return ""
}

// ExtractAccountNumber returns the account number, or "".
func ExtractAccountNumber(text string) string {
	for _, re := range accountPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.ReplaceAll(m[1], " ", "")
		}
	}
	return ""
}

// ExtractFields returns every header field found in text.
func ExtractFields(text string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		for _, p := range fieldPatterns {
			if _, done := fields[p.key]; done {
				continue
			}
			if m := p.re.FindStringSubmatch(line); m != nil {
				fields[p.key] = strings.TrimSpace(m[1])
			}
		}
	}
	return fields
}
