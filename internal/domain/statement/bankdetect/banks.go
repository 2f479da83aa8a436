package bankdetect

import "regexp"

// knownBank is one row of the built-in detection table.
type knownBank struct {
	Code     string
	Names    []string
	Keywords []string
	Patterns []*regexp.Regexp
}

// Score weights for built-in evidence.
const (
	keywordWeight = 2
	nameWeight    = 3
	patternWeight = 5
	profileWeight = 10
)

var builtinBanks = []knownBank{
	{
		Code:     "HDFC",
		Names:    []string{"HDFC BANK"},
		Keywords: []string{"HDFCBANK.COM", "HDFC BANK LIMITED", "WITHDRAWAL AMT", "DEPOSIT AMT", "CLOSING BALANCE"},
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\bHDFC0[A-Z0-9]{6}\b`)},
	},
	{
		Code:     "ICICI",
		Names:    []string{"ICICI BANK"},
		Keywords: []string{"ICICIBANK.COM", "ICICI BANK LIMITED", "TRANSACTION REMARKS"},
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\bICIC0[A-Z0-9]{6}\b`)},
	},
	{
		Code:     "SBI",
		Names:    []string{"STATE BANK OF INDIA"},
		Keywords: []string{"ONLINESBI", "SBI.CO.IN", "TXN DATE", "REF NO./CHEQUE NO."},
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\bSBIN0[A-Z0-9]{6}\b`)},
	},
	{
		Code:     "AXIS",
		Names:    []string{"AXIS BANK"},
		Keywords: []string{"AXISBANK.COM", "AXIS BANK LTD"},
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\bUTIB0[A-Z0-9]{6}\b`)},
	},
	{
		Code:     "KOTAK",
		Names:    []string{"KOTAK MAHINDRA BANK"},
		Keywords: []string{"KOTAK.COM", "KOTAK MAHINDRA"},
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\bKKBK0[A-Z0-9]{6}\b`)},
	},
	{
		Code:     "HSBC",
		Names:    []string{"HSBC UK BANK"},
		Keywords: []string{"HSBC.CO.UK", "HSBC UK", "PAID OUT", "PAID IN"},
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\b40-\d{2}-\d{2}\b`)},
	},
	{
		Code:     "BARCLAYS",
		Names:    []string{"BARCLAYS BANK"},
		Keywords: []string{"BARCLAYS.CO.UK", "BARCLAYS", "MONEY OUT", "MONEY IN"},
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\b20-\d{2}-\d{2}\b`)},
	},
	{
		Code:     "METRO",
		Names:    []string{"METRO BANK"},
		Keywords: []string{"METROBANKONLINE", "METRO BANK PLC"},
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\b23-05-80\b`)},
	},
}

// BankCodes lists the codes of the built-in table.
func BankCodes() []string {
	codes := make([]string, len(builtinBanks))
	for i, b := range builtinBanks {
		codes[i] = b.Code
	}
	return codes
}
