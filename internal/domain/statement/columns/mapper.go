// Package columns locates a statement's table header and turns it into an
// x-band to role mapping.
package columns

import (
	"math"
	"strings"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
)

const (
	// DefaultMaxHeaderRows bounds the header search, counted across pages.
	DefaultMaxHeaderRows = 50
	// LastColumnRightBound is the right edge given to the rightmost column.
	LastColumnRightBound = 1e6
	// maxPhraseTokens is the longest multi-token header phrase considered.
	maxPhraseTokens = 3
)

// Cell is one classified header cell.
type Cell struct {
	Text string        `json:"text"`
	Box  artifact.BBox `json:"bbox"`
	Role artifact.Role `json:"role"`
}

// HeaderLocation records where the header row was found.
type HeaderLocation struct {
	Page  int    `json:"page"`
	Row   int    `json:"row"`
	Text  string `json:"text"`
	Cells []Cell `json:"cells"`
}

// Mapper finds the header row and builds the column mapping.
type Mapper struct {
	vocab   Vocabulary
	lex     *lexicon
	maxRows int
}

// NewMapper returns a mapper with the built-in vocabulary.
func NewMapper() *Mapper {
	return &Mapper{vocab: defaultVocabulary, lex: defaultVocabulary.compile(), maxRows: DefaultMaxHeaderRows}
}

// Map scans the first rows of the document for a header. The returned
// mapping is empty, and found is false, when no row qualifies.
func (m *Mapper) Map(pages []*artifact.PageArtifact, profile *artifact.BankProfile) (artifact.ColumnMapping, HeaderLocation, bool) {
	lex := m.lexicon(profile)

	var hints []string
	if profile != nil {
		hints = profile.HeaderKeywords
	}
	if len(hints) > 0 {
		if mapping, loc, ok := m.scan(pages, lex, hints); ok {
			return mapping, loc, true
		}
	}
	return m.scan(pages, lex, nil)
}

func (m *Mapper) scan(pages []*artifact.PageArtifact, lex *lexicon, hints []string) (artifact.ColumnMapping, HeaderLocation, bool) {
	seen := 0
	for _, page := range pages {
		for _, row := range page.Rows {
			if seen >= m.maxRows {
				return artifact.ColumnMapping{}, HeaderLocation{}, false
			}
			seen++

			if len(hints) > 0 && !containsAny(row.Text(), hints) {
				continue
			}
			cells := segment(row, lex)
			if !qualifies(cells) {
				continue
			}
			loc := HeaderLocation{Page: page.PageNo, Row: row.Index, Text: row.Text(), Cells: cells}
			return buildMapping(cells), loc, true
		}
	}
	return artifact.ColumnMapping{}, HeaderLocation{}, false
}

// IsHeaderRow reports whether row would qualify as a header. Candidate
// generation uses it to drop headers repeated on later pages.
func (m *Mapper) IsHeaderRow(row artifact.Row, profile *artifact.BankProfile) bool {
	return qualifies(segment(row, m.lexicon(profile)))
}

// Cells classifies a row's header cells with the built-in vocabulary.
func (m *Mapper) Cells(row artifact.Row) []Cell {
	return segment(row, m.lex)
}

func (m *Mapper) lexicon(profile *artifact.BankProfile) *lexicon {
	if profile == nil || len(profile.ColumnKeywords) == 0 {
		return m.lex
	}
	return m.vocab.withOverrides(profile.ColumnKeywords).compile()
}

// segment splits a row into header cells. Adjacent tokens merge only when
// together they spell a known phrase, so "Closing" "Balance" becomes one
// BALANCE cell while "Date" "Narration" stay apart. Repeated roles after
// the first occurrence become OTHER.
func segment(row artifact.Row, lex *lexicon) []Cell {
	words := row.Words
	var cells []Cell

	for i := 0; i < len(words); {
		merged := false
		for k := maxPhraseTokens; k >= 2; k-- {
			if i+k > len(words) || !tight(words[i:i+k]) {
				continue
			}
			text := joinText(words[i : i+k])
			if role, ok := lex.exact(text); ok {
				box := words[i].Box
				for _, w := range words[i+1 : i+k] {
					box = box.Union(w.Box)
				}
				cells = append(cells, Cell{Text: text, Box: box, Role: role})
				i += k
				merged = true
				break
			}
		}
		if merged {
			continue
		}
		if strings.TrimSpace(words[i].Text) != "" {
			cells = append(cells, Cell{Text: words[i].Text, Box: words[i].Box, Role: lex.classify(words[i].Text)})
		}
		i++
	}

	seen := make(map[artifact.Role]bool)
	for i := range cells {
		role := cells[i].Role
		if role == artifact.RoleOther {
			continue
		}
		if seen[role] {
			cells[i].Role = artifact.RoleOther
			continue
		}
		seen[role] = true
	}
	return cells
}

// qualifies applies the header rule: DATE plus a money-flow role, or at
// least four distinct roles.
func qualifies(cells []Cell) bool {
	roles := make(map[artifact.Role]bool)
	for _, c := range cells {
		if c.Role != artifact.RoleOther {
			roles[c.Role] = true
		}
	}
	if roles[artifact.RoleDate] && (roles[artifact.RoleDebit] || roles[artifact.RoleCredit] || roles[artifact.RoleAmount]) {
		return true
	}
	return len(roles) >= 4
}

// buildMapping turns header cells into x-bands. Each band runs from its
// cell's left edge to the next cell's left edge.
func buildMapping(cells []Cell) artifact.ColumnMapping {
	cols := make([]artifact.Column, len(cells))
	for i, c := range cells {
		x1 := LastColumnRightBound
		if i+1 < len(cells) {
			x1 = cells[i+1].Box.X0
		}
		cols[i] = artifact.Column{Role: c.Role, X0: c.Box.X0, X1: math.Max(x1, c.Box.X0), Header: c.Text}
	}
	return artifact.NewColumnMapping(cols)
}

// tight reports whether consecutive words sit close enough to be one phrase.
func tight(words []artifact.WordArtifact) bool {
	for i := 1; i < len(words); i++ {
		gap := words[i].Box.X0 - words[i-1].Box.X1
		limit := math.Max(2.5*words[i].Box.Height(), 12)
		if gap > limit {
			return false
		}
	}
	return true
}

func joinText(words []artifact.WordArtifact) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

func containsAny(text string, phrases []string) bool {
	n := normalize(text)
	for _, p := range phrases {
		if np := normalize(p); np != "" && strings.Contains(n, np) {
			return true
		}
	}
	return false
}
