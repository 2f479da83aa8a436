// Package artifact holds the geometry and text primitives shared by every
// stage of the statement extraction pipeline.
package artifact

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// ErrRowsAlreadySet is returned when a page's rows are assigned twice.
var ErrRowsAlreadySet = errors.New("page rows already populated")

// BBox is an axis-aligned bounding box in top-down page coordinates.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewBBox returns a box with X0<=X1 and Y0<=Y1 regardless of argument order.
func NewBBox(x0, y0, x1, y1 float64) BBox {
	return BBox{
		X0: math.Min(x0, x1),
		Y0: math.Min(y0, y1),
		X1: math.Max(x0, x1),
		Y1: math.Max(y0, y1),
	}
}

func (b BBox) Width() float64   { return b.X1 - b.X0 }
func (b BBox) Height() float64  { return b.Y1 - b.Y0 }
func (b BBox) CenterX() float64 { return (b.X0 + b.X1) / 2 }
func (b BBox) CenterY() float64 { return (b.Y0 + b.Y1) / 2 }

// Union returns the smallest box covering both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X0: math.Min(b.X0, o.X0),
		Y0: math.Min(b.Y0, o.Y0),
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
	}
}

// WordArtifact is a positioned text token. Text and Box never change after
// extraction; only Confidence and Metadata may be updated by sanitization.
type WordArtifact struct {
	Text       string            `json:"text"`
	Box        BBox              `json:"bbox"`
	Confidence float64           `json:"confidence"`
	Page       int               `json:"page"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// NewWord builds a word with confidence clamped to [0,1].
func NewWord(text string, box BBox, confidence float64) WordArtifact {
	return WordArtifact{
		Text:       text,
		Box:        box,
		Confidence: clamp01(confidence),
	}
}

// Meta returns a metadata value, or "" when absent.
func (w WordArtifact) Meta(key string) string {
	if w.Metadata == nil {
		return ""
	}
	return w.Metadata[key]
}

// SetMeta records a metadata value on the word.
func (w *WordArtifact) SetMeta(key, value string) {
	if w.Metadata == nil {
		w.Metadata = make(map[string]string)
	}
	w.Metadata[key] = value
}

// LowerConfidence caps the confidence at c. It never raises it.
func (w *WordArtifact) LowerConfidence(c float64) {
	c = clamp01(c)
	if c < w.Confidence {
		w.Confidence = c
	}
}

// Row is a horizontally ordered cluster of words sharing a table line.
type Row struct {
	Index int            `json:"index"`
	Words []WordArtifact `json:"words"`
}

// Text joins the row's words with single spaces.
func (r Row) Text() string {
	parts := make([]string, 0, len(r.Words))
	for _, w := range r.Words {
		if t := strings.TrimSpace(w.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Box returns the union of the row's word boxes.
func (r Row) Box() BBox {
	if len(r.Words) == 0 {
		return BBox{}
	}
	box := r.Words[0].Box
	for _, w := range r.Words[1:] {
		box = box.Union(w.Box)
	}
	return box
}

// Table is a raw cell grid when the source already exposes one.
type Table [][]string

// PageArtifact is one page of positioned words.
type PageArtifact struct {
	PageNo int            `json:"page_no"`
	Words  []WordArtifact `json:"words"`
	Rows   []Row          `json:"rows,omitempty"`
	Tables []Table        `json:"tables,omitempty"`

	rowsSet bool
}

// NewPage creates an empty page.
func NewPage(pageNo int) *PageArtifact {
	return &PageArtifact{PageNo: pageNo}
}

// AddWord appends a word and stamps it with this page's number.
func (p *PageArtifact) AddWord(w WordArtifact) {
	w.Page = p.PageNo
	p.Words = append(p.Words, w)
}

// SetRows assigns the page's rows. Rows are ordered top to bottom and words
// inside each row left to right before they are stored.
func (p *PageArtifact) SetRows(rows []Row) error {
	if p.rowsSet {
		return ErrRowsAlreadySet
	}
	for i := range rows {
		sort.SliceStable(rows[i].Words, func(a, b int) bool {
			return rows[i].Words[a].Box.X0 < rows[i].Words[b].Box.X0
		})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Box().Y0 < rows[b].Box().Y0
	})
	for i := range rows {
		rows[i].Index = i
	}
	p.Rows = rows
	p.rowsSet = true
	return nil
}

// HasRows reports whether the layout stage already ran on this page.
func (p *PageArtifact) HasRows() bool { return p.rowsSet }

// Text returns the page text, row by row when rows exist.
func (p *PageArtifact) Text() string {
	var sb strings.Builder
	if p.rowsSet {
		for i, r := range p.Rows {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(r.Text())
		}
		return sb.String()
	}
	for i, w := range p.Words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(w.Text)
	}
	return sb.String()
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
