package keywords

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FuzzyContains reports whether name appears in text allowing up to
// maxDistance character edits. The text is scanned in windows of the same
// word count as name, so "HDFC BANK" still matches "HDFG BANK LTD".
func FuzzyContains(text, name string, maxDistance int) bool {
	nameWords := strings.Fields(strings.ToUpper(name))
	if len(nameWords) == 0 {
		return false
	}
	target := strings.Join(nameWords, " ")
	words := strings.Fields(strings.ToUpper(text))

	for i := 0; i+len(nameWords) <= len(words); i++ {
		window := strings.Join(words[i:i+len(nameWords)], " ")
		if window == target {
			return true
		}
		// Short names are too ambiguous for edits.
		if len(target) < 5 {
			continue
		}
		if fuzzy.LevenshteinDistance(window, target) <= maxDistance {
			return true
		}
	}
	return false
}
