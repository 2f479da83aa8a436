package normalizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	spaceRun       = regexp.MustCompile(`\s+`)
	trailingRef    = regexp.MustCompile(`\s+\d{4,}$`)
	trailingDate   = regexp.MustCompile(`\s+\d{1,2}/\d{1,2}/?$`)
	edgeSeparators = " -/:*|,."
)

// CleanDescription collapses whitespace and trims separator debris left by
// continuation-line merging. The wording itself is kept.
func CleanDescription(raw string) string {
	s := spaceRun.ReplaceAllString(raw, " ")
	return strings.Trim(s, edgeSeparators)
}

// cleanFragment strips trailing reference numbers and dates from a name.
func cleanFragment(raw string) string {
	s := strings.TrimSpace(raw)
	s = trailingRef.ReplaceAllString(s, "")
	s = trailingDate.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.Trim(s, edgeSeparators)
}

// titleCase upper-cases the first letter of each word and lowers the rest.
// A Caser keeps state, so each call gets its own.
func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(s), " "))
}
