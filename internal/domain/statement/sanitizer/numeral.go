// Package sanitizer normalizes numerals and dates read from statements and
// flags tokens whose shape suggests an extraction error.
package sanitizer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Reasons a numeral is considered suspicious.
const (
	ReasonMultipleDecimalPoints = "multiple_decimal_points"
	ReasonStrayCharacters       = "stray_characters"
	ReasonLongFraction          = "long_fraction"
	ReasonBadGrouping           = "bad_grouping"
)

// Numeral is the parsed form of a money token.
type Numeral struct {
	Raw        string
	Value      decimal.Decimal
	Valid      bool
	Suspicious bool
	Reason     string
}

var (
	currencyMarkers = regexp.MustCompile(`(?i)(₹|rs\.?|inr|usd|gbp|eur|\$|€|£)`)
	drcrSuffix      = regexp.MustCompile(`(?i)\s*(dr|cr)\.?$`)
	numericShape    = regexp.MustCompile(`(?i)^[-+(]?\s*(₹|rs\.?|inr|usd|gbp|eur|\$|€|£)?\s*[-+]?\d[\d,.\s]*\)?-?\s*(dr|cr)?\.?$`)
	integerGroups   = regexp.MustCompile(`^\d{1,3}(,\d{2,3})*$`)
)

// LooksNumeric reports whether text is shaped like a money token.
func LooksNumeric(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || strings.ContainsAny(t, "/:") {
		return false
	}
	return numericShape.MatchString(t)
}

// ParseNumeral parses a money token. Indian (1,00,000.00), US (1,234.56)
// and European (1.234,56) grouping are accepted. A leading or trailing
// minus, surrounding parentheses or a trailing "Dr" make the value negative.
func ParseNumeral(text string) Numeral {
	n := Numeral{Raw: text}
	s := strings.TrimSpace(text)
	if s == "" {
		return n
	}

	negative := false
	if m := drcrSuffix.FindStringSubmatch(s); m != nil {
		negative = strings.EqualFold(m[1], "dr")
		s = strings.TrimSpace(s[:len(s)-len(m[0])])
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = currencyMarkers.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		negative = true
		s = strings.Trim(s, "-")
	}
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return n
	}

	for _, r := range s {
		if (r < '0' || r > '9') && r != ',' && r != '.' {
			n.Suspicious = true
			n.Reason = ReasonStrayCharacters
			return n
		}
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	var intPart, fracPart string
	switch {
	case dots > 1 && commas == 0:
		n.Suspicious = true
		n.Reason = ReasonMultipleDecimalPoints
		return n
	case dots > 0 && commas > 0:
		// The separator that appears last is the decimal point.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			if commas > 1 {
				n.Suspicious = true
				n.Reason = ReasonMultipleDecimalPoints
				return n
			}
			intPart, fracPart = splitLast(s, ",")
			intPart = strings.ReplaceAll(intPart, ".", ",")
		} else {
			if dots > 1 {
				n.Suspicious = true
				n.Reason = ReasonMultipleDecimalPoints
				return n
			}
			intPart, fracPart = splitLast(s, ".")
		}
	case commas == 1 && dots == 0 && len(s)-strings.LastIndex(s, ",")-1 <= 2:
		intPart, fracPart = splitLast(s, ",")
	case dots == 1:
		intPart, fracPart = splitLast(s, ".")
	default:
		intPart = s
	}

	if strings.Contains(intPart, ",") && !integerGroups.MatchString(intPart) {
		n.Suspicious = true
		n.Reason = ReasonBadGrouping
		return n
	}
	if len(fracPart) > 2 {
		n.Suspicious = true
		n.Reason = ReasonLongFraction
	}

	digits := strings.ReplaceAll(intPart, ",", "")
	if digits == "" {
		digits = "0"
	}
	if fracPart != "" {
		digits += "." + fracPart
	}
	v, err := decimal.NewFromString(digits)
	if err != nil {
		n.Suspicious = true
		n.Reason = ReasonStrayCharacters
		return n
	}
	if negative {
		v = v.Neg()
	}
	n.Value = v
	n.Valid = true
	return n
}

// ParseAmount returns the value of a money token when it parses cleanly.
func ParseAmount(text string) (decimal.Decimal, bool) {
	n := ParseNumeral(text)
	if !n.Valid || n.Suspicious {
		return decimal.Decimal{}, false
	}
	return n.Value, true
}

func splitLast(s, sep string) (string, string) {
	i := strings.LastIndex(s, sep)
	return s[:i], s[i+1:]
}
