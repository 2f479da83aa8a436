package normalizer

import (
	"context"
	"log/slog"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/enrich"
)

// DefaultEnrichThreshold is the entity confidence below which the enricher
// is consulted.
const DefaultEnrichThreshold = 0.5

// manualConfidence is recorded when a stored correction set the entity.
const manualConfidence = 1.0

// Stats counts what normalization did.
type Stats struct {
	Entities    int
	Commodities int
	Enriched    int
	Overridden  int
}

// Engine normalizes inferred transactions in place.
type Engine struct {
	registry    *Registry
	commodities *CommodityClassifier
	overrides   enrich.Enricher
	enricher    enrich.Enricher
	threshold   float64
	logger      *slog.Logger
}

// NewEngine creates an engine with the default scorer and bank overrides.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry:    NewRegistry(NewDefaultScorer()),
		commodities: NewCommodityClassifier(),
		threshold:   DefaultEnrichThreshold,
		logger:      logger,
	}
}

// WithEnricher enables enrichment for low-confidence entities.
func (e *Engine) WithEnricher(en enrich.Enricher, threshold float64) *Engine {
	e.enricher = en
	if threshold > 0 {
		e.threshold = threshold
	}
	return e
}

// WithOverrides sets the source of manual corrections. They are looked up
// for every transaction and replace whatever the extractors produced.
func (e *Engine) WithOverrides(o enrich.Enricher) *Engine {
	e.overrides = o
	return e
}

// WithRegistry replaces the extractor dispatch table.
func (e *Engine) WithRegistry(r *Registry) *Engine {
	e.registry = r
	return e
}

// Normalize cleans each description and fills the entity fields.
func (e *Engine) Normalize(ctx context.Context, txs []artifact.FinalTransaction) Stats {
	var stats Stats
	for i := range txs {
		tx := &txs[i]
		raw := tx.Description

		entity := e.registry.ExtractorFor(tx.BankCode).Extract(raw)
		tx.Description = CleanDescription(raw)
		tx.Store = entity.Store()
		tx.Person = entity.Person()
		tx.EntityConfidence = entity.Confidence
		if entity.Name != "" {
			stats.Entities++
		}

		tx.Commodity = e.commodities.Classify(tx.Description)
		if tx.Commodity != "" {
			stats.Commodities++
		}

		if e.override(ctx, tx, raw) {
			stats.Overridden++
			continue
		}

		if e.enricher == nil || entity.Confidence >= e.threshold {
			continue
		}
		fields, ok := e.enricher.TryEnrich(ctx, raw)
		if !ok || fields == nil {
			continue
		}
		if e.fill(tx, fields) {
			stats.Enriched++
		}
	}

	e.logger.Debug("normalized transactions",
		slog.Int("count", len(txs)),
		slog.Int("entities", stats.Entities),
		slog.Int("enriched", stats.Enriched),
		slog.Int("overridden", stats.Overridden))
	return stats
}

// override applies a stored correction. A correction naming a store or a
// person replaces both entity slots; a commodity replaces the classifier's.
func (e *Engine) override(ctx context.Context, tx *artifact.FinalTransaction, raw string) bool {
	if e.overrides == nil {
		return false
	}
	fields, ok := e.overrides.TryEnrich(ctx, raw)
	if !ok || fields == nil || fields.Empty() {
		return false
	}
	if fields.Store != "" || fields.Person != "" {
		tx.Store = fields.Store
		tx.Person = fields.Person
		tx.EntityConfidence = manualConfidence
	}
	if fields.Commodity != "" {
		tx.Commodity = fields.Commodity
	}
	return true
}

// fill copies enriched fields into empty slots only.
func (e *Engine) fill(tx *artifact.FinalTransaction, fields *enrich.ParsedFields) bool {
	changed := false
	if tx.Store == "" && tx.Person == "" {
		switch {
		case fields.Store != "":
			tx.Store = fields.Store
			changed = true
		case fields.Person != "":
			tx.Person = fields.Person
			changed = true
		}
	}
	if tx.Commodity == "" && fields.Commodity != "" {
		tx.Commodity = fields.Commodity
		changed = true
	}
	return changed
}
