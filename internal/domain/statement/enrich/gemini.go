package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// ContentGenerator is the slice of the genai client used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for the entities in a transaction narration.
type Gemini struct {
	models  ContentGenerator
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewGeminiClient creates a genai client for the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// NewGemini builds an enricher. requestsPerSecond <= 0 disables limiting.
func NewGemini(models ContentGenerator, model string, requestsPerSecond float64, logger *slog.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = int(requestsPerSecond) + 1
	}
	return &Gemini{models: models, model: model, limiter: rate.NewLimiter(limit, burst), logger: logger}
}

const promptTemplate = `You extract entities from one bank statement transaction narration.
Return STRICT JSON only, no code fences, with exactly these fields:
{"store": string or null, "person": string or null, "commodity": string or null}
- "store": the merchant or business that was paid or that paid, in title case.
- "person": the individual counterparty, in title case, only when it is not a business.
- "commodity": one lowercase word for what the money was for (food, groceries, shopping, transport, utilities, entertainment, health, finance, income, cash, rent, transfer).
Use null when a field cannot be determined. Never invent values.

Narration: %q`

type geminiReply struct {
	Store     *string `json:"store"`
	Person    *string `json:"person"`
	Commodity *string `json:"commodity"`
}

func (g *Gemini) TryEnrich(ctx context.Context, text string) (*ParsedFields, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, false
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: fmt.Sprintf(promptTemplate, text)}},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Debug("gemini enrichment failed", slog.Any("error", err))
		return nil, false
	}

	raw := cleanModelJSON(resp.Text())
	var reply geminiReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		g.logger.Debug("gemini reply is not JSON", slog.String("raw", raw))
		return nil, false
	}

	fields := &ParsedFields{
		Store:     deref(reply.Store),
		Person:    deref(reply.Person),
		Commodity: strings.ToLower(deref(reply.Commodity)),
	}
	if fields.Empty() {
		return nil, false
	}
	return fields, true
}

// cleanModelJSON strips Markdown fences a model may add despite the prompt.
func cleanModelJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "{"); i > 0 {
		s = s[i:]
	}
	if j := strings.LastIndex(s, "}"); j >= 0 && j < len(s)-1 {
		s = s[:j+1]
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if strings.EqualFold(v, "null") {
		return ""
	}
	return v
}
