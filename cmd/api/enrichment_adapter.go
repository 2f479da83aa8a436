package api

import (
	"context"
	"log/slog"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/enrich"
	"github.com/FACorreiaa/statement-extractor/pkg/config"
)

// newEnricher builds the model-backed enricher: Gemini behind a cache and
// a per-call deadline. It returns nil when Gemini is not configured, which
// leaves enrichment disabled.
func newEnricher(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (enrich.Enricher, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := enrich.NewGeminiClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	gemini := enrich.NewGemini(client.Models, cfg.Model, cfg.RequestsPerSecond, logger)
	logger.Info("gemini enrichment enabled", slog.String("model", cfg.Model))
	return enrich.NewBounded(
		enrich.NewCached(gemini, enrich.NewCache(cfg.CacheSize)),
		cfg.Timeout,
		logger,
	), nil
}
