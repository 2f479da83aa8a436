// Package loader turns an input document into pages of positioned words.
// Each input format has its own adapter; all of them produce the same
// PageArtifact contract.
package loader

import (
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/integrity"
)

// Synthetic grid used for spreadsheet and plain-text sources.
const (
	CellWidth  = 120.0
	CellHeight = 20.0
	// cellInset keeps neighbouring synthetic boxes from touching.
	cellInset = 10.0
)

// PageError records a page that could not be extracted. It is never fatal.
type PageError struct {
	Page int
	Err  error
}

func (e PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e PageError) Unwrap() error { return e.Err }

// Result holds the extracted pages.
type Result struct {
	Pages      []*artifact.PageArtifact
	Skipped    []PageError
	TotalPages int
	Truncated  bool
}

// Adapter extracts pages for one input format.
type Adapter interface {
	Load(report *integrity.Report, opts Options) (*Result, error)
}

// Options tune one extraction.
type Options struct {
	// MaxPages truncates extraction at a fixed page count; 0 means no cap.
	MaxPages int
	// Tolerant lowers word confidence and records empty pages instead of
	// treating them as normal.
	Tolerant bool
}

// pageLimit returns how many of total pages to read.
func (o Options) pageLimit(total int) (int, bool) {
	if o.MaxPages > 0 && total > o.MaxPages {
		return o.MaxPages, true
	}
	return total, false
}

// Loader dispatches to the adapter for a report's format.
type Loader struct {
	adapters map[integrity.Format]Adapter
	maxPages int
	logger   *slog.Logger
}

// New creates a loader with the PDF, spreadsheet and text adapters.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		adapters: map[integrity.Format]Adapter{
			integrity.FormatPDF:   NewPDFAdapter(logger),
			integrity.FormatExcel: NewExcelAdapter(),
			integrity.FormatText:  NewTextAdapter(),
		},
		logger: logger,
	}
}

// WithMaxPages sets the default hard page cap.
func (l *Loader) WithMaxPages(n int) *Loader {
	l.maxPages = n
	return l
}

// Load extracts pages. maxPages overrides the default cap when positive.
// Encrypted input surfaces as integrity.PasswordRequiredError.
func (l *Loader) Load(report *integrity.Report, flavor artifact.DocumentFlavor, maxPages int) (*Result, error) {
	adapter, ok := l.adapters[report.Format]
	if !ok {
		return nil, fmt.Errorf("no loader for format %q", report.Format)
	}
	if maxPages <= 0 {
		maxPages = l.maxPages
	}

	res, err := adapter.Load(report, Options{MaxPages: maxPages, Tolerant: flavor.Tolerant()})
	if err != nil {
		return nil, err
	}

	for _, pe := range res.Skipped {
		l.logger.Warn("page skipped",
			slog.String("path", report.Path),
			slog.Int("page", pe.Page),
			slog.Any("error", pe.Err))
	}
	if res.Truncated {
		l.logger.Info("extraction truncated at page cap",
			slog.Int("max_pages", maxPages),
			slog.Int("total_pages", res.TotalPages))
	}
	return res, nil
}

func syntheticBox(col, row int) artifact.BBox {
	x := float64(col) * CellWidth
	y := float64(row) * CellHeight
	return artifact.NewBBox(x, y, x+CellWidth-cellInset, y+CellHeight-cellInset)
}
