// Package classifier decides a document's flavor without a full extraction.
package classifier

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/integrity"
)

const (
	// DefaultSamplePages is how many leading pages are inspected.
	DefaultSamplePages = 3
	// DefaultTextThreshold is the per-page character count above which a
	// page counts as text-native.
	DefaultTextThreshold = 100
)

// Result is the classification and the evidence behind it.
type Result struct {
	Flavor      artifact.DocumentFlavor
	SampleChars []int
	Err         error
}

// Classifier samples PDF text to pick a flavor.
type Classifier struct {
	samplePages int
	threshold   int
	logger      *slog.Logger
}

// New creates a classifier with the default sampling parameters.
func New(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		samplePages: DefaultSamplePages,
		threshold:   DefaultTextThreshold,
		logger:      logger,
	}
}

// WithSampling overrides the page sample size and the text threshold.
func (c *Classifier) WithSampling(pages, threshold int) *Classifier {
	if pages > 0 {
		c.samplePages = pages
	}
	if threshold > 0 {
		c.threshold = threshold
	}
	return c
}

// Classify returns the document flavor. Spreadsheets and text files are
// classified from their format. Sampling failures fall back to mixed.
func (c *Classifier) Classify(report *integrity.Report) Result {
	switch report.Format {
	case integrity.FormatExcel:
		return Result{Flavor: artifact.FlavorTabular}
	case integrity.FormatText:
		return Result{Flavor: artifact.FlavorPlainText}
	}

	chars, err := c.sample(report.Path)
	if err != nil {
		c.logger.Warn("flavor sampling failed, assuming mixed",
			slog.String("path", report.Path),
			slog.Any("error", err))
		return Result{Flavor: artifact.FlavorMixed, Err: err}
	}
	return Result{Flavor: c.decide(chars), SampleChars: chars}
}

func (c *Classifier) decide(chars []int) artifact.DocumentFlavor {
	if len(chars) == 0 {
		return artifact.FlavorScanned
	}
	rich, total := 0, 0
	for _, n := range chars {
		total += n
		if n > c.threshold {
			rich++
		}
	}
	switch {
	case rich == len(chars):
		return artifact.FlavorTextNative
	case total == 0:
		return artifact.FlavorScanned
	default:
		return artifact.FlavorMixed
	}
}

func (c *Classifier) sample(path string) (chars []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	if n > c.samplePages {
		n = c.samplePages
	}
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			chars = append(chars, 0)
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			font := page.Font(name)
			fonts[name] = &font
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		chars = append(chars, len(strings.Join(strings.Fields(text), "")))
	}
	return chars, nil
}
