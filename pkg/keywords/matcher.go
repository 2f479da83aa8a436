// Package keywords provides multi-pattern keyword matching over statement
// text, using the Aho-Corasick algorithm for exact hits and Levenshtein
// distance for OCR-tolerant name lookups.
package keywords

import (
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Entry is a keyword and the value it resolves to.
type Entry struct {
	Keyword string
	Value   string
	Weight  int
}

// Hit is one keyword found in the input.
type Hit struct {
	Keyword string
	Value   string
	Weight  int
}

// Matcher finds every registered keyword in a single pass over the text.
// Matching is case-insensitive.
type Matcher struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	entries  [][]Entry // entries grouped by pattern index
	mu       sync.RWMutex
}

// NewMatcher builds a matcher over entries.
func NewMatcher(entries []Entry) *Matcher {
	m := &Matcher{}
	m.Build(entries)
	return m
}

// Build replaces the matcher's keyword set. Duplicate keywords keep every
// entry so a single hit can resolve to several values.
func (m *Matcher) Build(entries []Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := make(map[string]int)
	patterns := make([]string, 0, len(entries))
	grouped := make([][]Entry, 0, len(entries))

	for _, e := range entries {
		key := strings.ToUpper(strings.TrimSpace(e.Keyword))
		if key == "" {
			continue
		}
		if idx, ok := index[key]; ok {
			grouped[idx] = append(grouped[idx], e)
			continue
		}
		index[key] = len(patterns)
		patterns = append(patterns, key)
		grouped = append(grouped, []Entry{e})
	}

	m.patterns = patterns
	m.entries = grouped
	if len(patterns) == 0 {
		m.matcher = nil
		return
	}
	m.matcher = ahocorasick.NewStringMatcher(patterns)
}

// Match returns every hit in text, heaviest first. Ties keep keyword order.
func (m *Matcher) Match(text string) []Hit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.matcher == nil {
		return nil
	}

	idxs := m.matcher.MatchThreadSafe([]byte(strings.ToUpper(text)))
	if len(idxs) == 0 {
		return nil
	}
	sort.Ints(idxs)

	hits := make([]Hit, 0, len(idxs))
	for _, idx := range idxs {
		if idx < 0 || idx >= len(m.entries) {
			continue
		}
		for _, e := range m.entries[idx] {
			hits = append(hits, Hit{Keyword: m.patterns[idx], Value: e.Value, Weight: e.Weight})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Weight > hits[j].Weight })
	return hits
}

// MatchWords is Match restricted to hits that occur as whole words, so
// "OLA" does not fire inside "NICOLA".
func (m *Matcher) MatchWords(text string) []Hit {
	hits := m.Match(text)
	if len(hits) == 0 {
		return nil
	}
	upper := strings.ToUpper(text)
	out := hits[:0]
	for _, h := range hits {
		if wholeWord(upper, h.Keyword) {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func wholeWord(text, word string) bool {
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		if (i == 0 || !isWordByte(text[i-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = i + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
