package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/integrity"
)

const (
	// sniffLines is how many non-empty lines decide the delimiter.
	sniffLines = 20
	// maxLineBytes bounds a single line of text input.
	maxLineBytes = 1 << 20
	// CharWidth is the advance of one character of fixed-width text.
	CharWidth = 6.0
)

var (
	candidateDelimiters = []rune{',', ';', '\t', '|'}
	columnGap           = regexp.MustCompile(`\s{2,}`)
)

// TextAdapter reads delimited or fixed-width text as a single page.
type TextAdapter struct{}

// NewTextAdapter creates a plain-text adapter.
func NewTextAdapter() *TextAdapter {
	return &TextAdapter{}
}

func (a *TextAdapter) Load(report *integrity.Report, _ Options) (*Result, error) {
	raw, err := os.ReadFile(report.Path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	body, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	if delim, ok := sniffDelimiter(body); ok {
		rows, err := readDelimited(body, delim)
		if err != nil {
			return nil, fmt.Errorf("parse delimited text: %w", err)
		}
		return &Result{Pages: []*artifact.PageArtifact{gridPage(1, rows)}, TotalPages: 1}, nil
	}

	rows, err := readFixedWidth(body)
	if err != nil {
		return nil, fmt.Errorf("parse fixed-width text: %w", err)
	}
	return &Result{Pages: []*artifact.PageArtifact{fixedWidthPage(1, rows)}, TotalPages: 1}, nil
}

// decodeText returns UTF-8 text, treating invalid UTF-8 as Latin-1.
func decodeText(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(decoded), nil
}

// sniffDelimiter picks the candidate that splits the leading lines into a
// consistent number (>1) of fields.
func sniffDelimiter(body string) (rune, bool) {
	lines := leadingLines(body, sniffLines)
	if len(lines) == 0 {
		return 0, false
	}

	best, bestScore := rune(0), 0
	for _, d := range candidateDelimiters {
		counts := make(map[int]int)
		for _, line := range lines {
			if n := strings.Count(line, string(d)); n > 0 {
				counts[n]++
			}
		}
		// Score is the number of lines agreeing on the most common count.
		score := 0
		for _, c := range counts {
			if c > score {
				score = c
			}
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	// Require agreement from at least half the sample.
	if bestScore*2 < len(lines) {
		return 0, false
	}
	return best, true
}

func leadingLines(body string, n int) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() && len(lines) < n {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func readDelimited(body string, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(body))
	r.Comma = delim
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// field is one fixed-width value and the character column it starts at.
type field struct {
	text   string
	offset int
}

func (f field) end() int { return f.offset + utf8.RuneCountInString(f.text) }

// readFixedWidth splits each line on runs of two or more spaces, keeping
// every field's character offset so blank cells do not shift later values.
func readFixedWidth(body string) ([][]field, error) {
	var rows [][]field
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		var row []field
		start := 0
		for _, gap := range columnGap.FindAllStringIndex(line, -1) {
			row = appendField(row, line, start, gap[0])
			start = gap[1]
		}
		row = appendField(row, line, start, len(line))
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func appendField(row []field, line string, start, end int) []field {
	seg := line[start:end]
	text := strings.TrimLeft(seg, " \t")
	start += len(seg) - len(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return row
	}
	return append(row, field{text: text, offset: utf8.RuneCountInString(line[:start])})
}

// fixedWidthPage places each field at x = offset*CharWidth so values sit
// under the header they are printed beneath. The table aligns fields to
// the columns of the widest row by greatest character overlap.
func fixedWidthPage(pageNo int, rows [][]field) *artifact.PageArtifact {
	page := artifact.NewPage(pageNo)

	var columns []field
	for _, row := range rows {
		if len(row) > len(columns) {
			columns = row
		}
	}

	table := make(artifact.Table, 0, len(rows))
	for r, row := range rows {
		cells := make([]string, len(columns))
		for _, f := range row {
			y := float64(r) * CellHeight
			x := float64(f.offset) * CharWidth
			box := artifact.NewBBox(x, y, float64(f.end())*CharWidth, y+CellHeight-cellInset)
			page.AddWord(artifact.NewWord(f.text, box, 1))

			if c := columnFor(f, columns); c >= 0 {
				cells[c] = strings.TrimSpace(cells[c] + " " + f.text)
			}
		}
		table = append(table, cells)
	}
	page.Tables = append(page.Tables, table)
	return page
}

// columnFor returns the column index whose span overlaps f the most, or -1.
func columnFor(f field, columns []field) int {
	best, bestOverlap := -1, 0
	for i, c := range columns {
		end := math.MaxInt
		if i+1 < len(columns) {
			end = columns[i+1].offset
		}
		overlap := min(f.end(), end) - max(f.offset, c.offset)
		if i == 0 && f.offset < c.offset {
			overlap = min(f.end(), end) - f.offset
		}
		if overlap > bestOverlap {
			best, bestOverlap = i, overlap
		}
	}
	return best
}
