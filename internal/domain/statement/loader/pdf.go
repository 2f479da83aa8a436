package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/integrity"
)

const (
	defaultPageHeight = 792.0
	defaultFontSize   = 10.0
	// wordGap is the horizontal gap, relative to font size, that splits
	// two glyphs into separate words.
	wordGap = 0.3
	// tolerantConfidence is assigned to words read on the lenient path.
	tolerantConfidence = 0.8
)

var errNoTextLayer = errors.New("page has no text layer")

// PDFAdapter reads glyph positions and groups them into words.
type PDFAdapter struct {
	logger *slog.Logger
}

// NewPDFAdapter creates a PDF adapter.
func NewPDFAdapter(logger *slog.Logger) *PDFAdapter {
	return &PDFAdapter{logger: logger}
}

func (a *PDFAdapter) Load(report *integrity.Report, opts Options) (*Result, error) {
	f, r, err := pdf.Open(report.Path)
	if err != nil {
		if isEncryptionError(err) {
			return nil, &integrity.PasswordRequiredError{Path: report.Path}
		}
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	limit, truncated := opts.pageLimit(total)
	res := &Result{TotalPages: total, Truncated: truncated}

	for i := 1; i <= limit; i++ {
		page, err := a.loadPage(r, i, opts)
		if err != nil {
			res.Skipped = append(res.Skipped, PageError{Page: i, Err: err})
			continue
		}
		res.Pages = append(res.Pages, page)
	}
	return res, nil
}

func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}

func (a *PDFAdapter) loadPage(r *pdf.Reader, pageNo int, opts Options) (page *artifact.PageArtifact, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			page, err = nil, fmt.Errorf("pdf reader crashed: %v", rec)
		}
	}()

	p := r.Page(pageNo)
	if p.V.IsNull() {
		return nil, errors.New("page object is null")
	}

	confidence := 1.0
	if opts.Tolerant {
		confidence = tolerantConfidence
	}

	page = artifact.NewPage(pageNo)
	for _, w := range groupGlyphs(p.Content().Text, pageHeight(p)) {
		page.AddWord(artifact.NewWord(w.text, w.box, confidence))
	}
	if len(page.Words) == 0 && opts.Tolerant {
		return nil, errNoTextLayer
	}
	return page, nil
}

func pageHeight(p pdf.Page) float64 {
	box := p.V.Key("MediaBox")
	if box.Kind() != pdf.Array || box.Len() < 4 {
		return defaultPageHeight
	}
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if h <= 0 {
		return defaultPageHeight
	}
	return h
}

type glyphWord struct {
	text string
	box  artifact.BBox
}

// groupGlyphs merges glyph runs into words. PDF y grows upwards; boxes are
// returned top-down.
func groupGlyphs(glyphs []pdf.Text, height float64) []glyphWord {
	var (
		words   []glyphWord
		current strings.Builder
		x0, x1  float64
		base    float64
		size    float64
	)

	flush := func() {
		text := strings.TrimSpace(current.String())
		if text != "" {
			top := height - base - size
			words = append(words, glyphWord{text: text, box: artifact.NewBBox(x0, top, x1, height-base)})
		}
		current.Reset()
	}

	for _, g := range glyphs {
		fs := g.FontSize
		if fs <= 0 {
			fs = defaultFontSize
		}
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}

		if current.Len() > 0 {
			sameLine := abs(g.Y-base) <= size*0.5
			gap := g.X - x1
			if !sameLine || gap > size*wordGap || gap < -size {
				flush()
			}
		}
		if current.Len() == 0 {
			x0, base, size = g.X, g.Y, fs
		}
		current.WriteString(g.S)
		x1 = g.X + g.W
	}
	flush()
	return words
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
