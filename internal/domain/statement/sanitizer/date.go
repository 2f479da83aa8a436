package sanitizer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

type datePattern struct {
	re    *regexp.Regexp
	parse func(m []string) (time.Time, bool)
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

const monthNames = `(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*`

// Ordered: the first pattern that yields a real calendar date wins.
var datePatterns = []datePattern{
	{regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`), func(m []string) (time.Time, bool) {
		return buildDate(m[3], m[2], m[1])
	}},
	{regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4}|\d{2})\b`), func(m []string) (time.Time, bool) {
		if t, ok := buildDate(m[1], m[2], m[3]); ok {
			return t, true
		}
		// Month-first only when day-first is impossible.
		return buildDate(m[2], m[1], m[3])
	}},
	{regexp.MustCompile(`(?i)\b(\d{1,2})[\s\-/]+` + monthNames + `[\s\-/,]+(\d{4}|\d{2})\b`), func(m []string) (time.Time, bool) {
		return buildNamedDate(m[1], m[2], m[3])
	}},
	{regexp.MustCompile(`(?i)\b` + monthNames + `\s+(\d{1,2}),?\s+(\d{4})\b`), func(m []string) (time.Time, bool) {
		return buildNamedDate(m[2], m[1], m[3])
	}},
}

// ExtractDate returns the first valid date substring in text.
func ExtractDate(text string) (string, bool) {
	raw, _, ok := findDate(text)
	return raw, ok
}

// ToISO converts a raw date to YYYY-MM-DD, or "" when it cannot be parsed.
func ToISO(raw string) string {
	_, t, ok := findDate(raw)
	if !ok {
		return ""
	}
	return t.Format(isoLayout)
}

// IsDate reports whether the whole of text is a single date.
func IsDate(text string) bool {
	raw, ok := ExtractDate(text)
	return ok && strings.TrimSpace(text) == raw
}

func findDate(text string) (string, time.Time, bool) {
	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if t, ok := p.parse(m); ok {
				return m[0], t, true
			}
		}
	}
	return "", time.Time{}, false
}

func buildDate(day, month, year string) (time.Time, bool) {
	d, err1 := strconv.Atoi(day)
	mo, err2 := strconv.Atoi(month)
	if err1 != nil || err2 != nil || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	return validDate(d, time.Month(mo), year)
}

func buildNamedDate(day, month, year string) (time.Time, bool) {
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, false
	}
	key := strings.ToLower(month)
	if len(key) > 3 {
		key = key[:3]
	}
	mo, ok := months[key]
	if !ok {
		return time.Time{}, false
	}
	return validDate(d, mo, year)
}

func validDate(day int, month time.Month, year string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	if len(year) == 2 {
		y += 2000
	}
	if y < 1950 || y > 2100 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
