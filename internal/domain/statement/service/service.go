// Package service runs the extraction pipeline over one document and
// assembles the caller-facing response.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/bankdetect"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/candidates"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/classifier"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/columns"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/diagnostics"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/inference"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/integrity"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/layout"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/loader"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/normalizer"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/reconcile"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/sanitizer"
	"github.com/FACorreiaa/statement-extractor/pkg/observability"
)

// Stage names used for spans and the stage_duration_seconds metric.
const (
	StageIntegrity = "integrity"
	StageClassify  = "classify"
	StageLoad      = "load"
	StageSanitize  = "sanitize"
	StageLayout    = "layout"
	StageDetect    = "detect"
	StageMap       = "map_columns"
	StageGenerate  = "generate"
	StageInfer     = "infer"
	StageNormalize = "normalize"
	StageValidate  = "validate"
	StagePersist   = "persist"
)

// DiagnosticNoColumnMapping is recorded when no header row was found.
const DiagnosticNoColumnMapping = "no_column_mapping"

var (
	// ErrPanic wraps a panic recovered at the pipeline boundary.
	ErrPanic = errors.New("pipeline panic")
	// ErrCancelled is returned when the context ends before persistence.
	ErrCancelled = errors.New("processing cancelled")
)

// Request is one document to process.
type Request struct {
	Path     string
	Password string
	// Profiles override the service's bank profiles when non-nil.
	Profiles []artifact.BankProfile
	// MaxPages overrides the service's page cap when positive.
	MaxPages int
}

// Sink persists a finished response.
type Sink interface {
	Save(ctx context.Context, resp *Response) error
}

// Service wires the pipeline stages in their fixed order.
type Service struct {
	gate       *integrity.Gate
	classifier *classifier.Classifier
	loader     *loader.Loader
	sanitizer  *sanitizer.Sanitizer
	detector   *bankdetect.Detector
	mapper     *columns.Mapper
	generator  *candidates.Generator
	inference  *inference.Engine
	normalizer *normalizer.Engine
	sink       Sink
	metrics    *observability.Metrics
	tracer     trace.Tracer
	profiles   []artifact.BankProfile
	logger     *slog.Logger
}

// New creates a service with the default stages, no persistence and no
// enrichment.
func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	mapper := columns.NewMapper()
	return &Service{
		gate:       integrity.NewGate("", logger),
		classifier: classifier.New(logger),
		loader:     loader.New(logger),
		sanitizer:  sanitizer.New(nil, 0),
		detector:   bankdetect.NewDetector(),
		mapper:     mapper,
		generator:  candidates.NewGenerator(mapper),
		inference:  inference.NewEngine(),
		normalizer: normalizer.NewEngine(logger),
		tracer:     observability.Tracer(),
		logger:     logger,
	}
}

// WithGate replaces the integrity gate, e.g. to change the temp directory.
func (s *Service) WithGate(g *integrity.Gate) *Service {
	s.gate = g
	return s
}

// WithDiagnostics routes low-confidence words to sink.
func (s *Service) WithDiagnostics(sink diagnostics.Sink, threshold float64) *Service {
	s.sanitizer = sanitizer.New(sink, threshold)
	return s
}

// WithNormalizer replaces the normalization engine.
func (s *Service) WithNormalizer(n *normalizer.Engine) *Service {
	s.normalizer = n
	return s
}

// WithSink enables persistence of finished responses.
func (s *Service) WithSink(sink Sink) *Service {
	s.sink = sink
	return s
}

// WithMetrics enables Prometheus metrics.
func (s *Service) WithMetrics(m *observability.Metrics) *Service {
	s.metrics = m
	return s
}

// WithProfiles sets the default bank profiles.
func (s *Service) WithProfiles(profiles []artifact.BankProfile) *Service {
	s.profiles = profiles
	return s
}

// WithMaxPages sets the default hard page cap.
func (s *Service) WithMaxPages(n int) *Service {
	s.loader.WithMaxPages(n)
	return s
}

// Process runs every stage over one document. It never returns nil and
// never panics; failures are reported through Response.Status.
func (s *Service) Process(ctx context.Context, req Request) (resp *Response) {
	job := artifact.NewJobContext(req.Path, req.Password)
	ctx, span := s.tracer.Start(ctx, "statement.process",
		trace.WithAttributes(attribute.String("statement_id", job.StatementID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrPanic, r)
			s.logger.Error("pipeline panic",
				slog.String("statement_id", job.StatementID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			resp = s.fail(job, StatusFailed, err)
		}
		span.SetAttributes(attribute.String("status", string(resp.Status)))
		if resp.Status != StatusSuccess {
			span.SetStatus(codes.Error, resp.Error)
		}
		s.metrics.CountDocument(string(resp.Status))
	}()

	return s.run(ctx, job, req)
}

func (s *Service) run(ctx context.Context, job *artifact.JobContext, req Request) *Response {
	var report *integrity.Report
	err := s.stage(ctx, StageIntegrity, func(context.Context) error {
		var err error
		report, err = s.gate.Check(req.Path, req.Password)
		return err
	})
	if err != nil {
		return s.failFor(job, err)
	}
	defer report.Close()
	job.Metadata[MetaPageCount] = report.PageCount

	var class classifier.Result
	_ = s.stage(ctx, StageClassify, func(context.Context) error {
		class = s.classifier.Classify(report)
		return class.Err
	})
	job.Flavor = class.Flavor
	job.Metadata[MetaDocumentFlavor] = string(class.Flavor)

	var loaded *loader.Result
	err = s.stage(ctx, StageLoad, func(context.Context) error {
		var err error
		loaded, err = s.loader.Load(report, class.Flavor, req.MaxPages)
		return err
	})
	if err != nil {
		return s.failFor(job, err)
	}
	job.Pages = loaded.Pages
	if loaded.TotalPages > 0 {
		job.Metadata[MetaPageCount] = loaded.TotalPages
	}
	skipped := make([]int, 0, len(loaded.Skipped))
	for _, pe := range loaded.Skipped {
		skipped = append(skipped, pe.Page)
	}
	job.Metadata[MetaSkippedPages] = skipped
	if loaded.Truncated {
		job.AddDiagnostic(fmt.Sprintf("truncated_at_%d_pages", len(loaded.Pages)))
	}

	_ = s.stage(ctx, StageSanitize, func(context.Context) error {
		var errs []error
		for _, page := range job.Pages {
			st, err := s.sanitizer.SanitizePage(job.StatementID, page)
			if err != nil {
				errs = append(errs, err)
			}
			job.Stats["numerals"] += float64(st.Numerals)
			job.Stats["dates"] += float64(st.Dates)
			job.Stats["suspicious"] += float64(st.Suspicious)
		}
		if err := errors.Join(errs...); err != nil {
			s.logger.Warn("diagnostic log write failed",
				slog.String("statement_id", job.StatementID),
				slog.Any("error", err))
			return err
		}
		return nil
	})

	_ = s.stage(ctx, StageLayout, func(context.Context) error {
		for _, page := range job.Pages {
			if err := layout.Analyze(page); err != nil && !errors.Is(err, artifact.ErrRowsAlreadySet) {
				s.logger.Warn("layout analysis failed",
					slog.Int("page", page.PageNo),
					slog.Any("error", err))
			}
		}
		return nil
	})

	profiles := s.profiles
	if req.Profiles != nil {
		profiles = req.Profiles
	}
	var profile *artifact.BankProfile
	_ = s.stage(ctx, StageDetect, func(context.Context) error {
		if len(job.Pages) == 0 {
			return nil
		}
		det := s.detector.Detect(job.Pages[0], profiles)
		job.BankCode = det.BankCode
		job.AccountHolder = det.AccountHolder
		job.AccountNumber = det.AccountNumber
		job.Metadata[MetaBankScore] = det.Score
		if det.AccountNumber != "" {
			job.Metadata[MetaAccountNumber] = det.AccountNumber
		}
		for k, v := range det.HeaderFields {
			job.Metadata[k] = v
		}
		if p, ok := artifact.FindProfile(profiles, det.BankCode); ok {
			profile = &p
		}
		return nil
	})

	var (
		mapping artifact.ColumnMapping
		header  columns.HeaderLocation
	)
	_ = s.stage(ctx, StageMap, func(context.Context) error {
		mapping, header, _ = s.mapper.Map(job.Pages, profile)
		return nil
	})
	if mapping.IsEmpty() {
		job.AddDiagnostic(DiagnosticNoColumnMapping)
	}
	job.Metadata[MetaRawRowsSample] = rowsSample(job.Pages, rawRowsSampleSize)

	var gen candidates.Result
	_ = s.stage(ctx, StageGenerate, func(context.Context) error {
		if !mapping.IsEmpty() {
			gen = s.generator.Generate(job.Pages, mapping, header, profile)
		}
		return nil
	})
	job.Metadata[MetaRawCandidates] = len(gen.Candidates)
	job.Stats["rows_scanned"] = float64(gen.RowsScanned)
	job.Stats["noise_dropped"] = float64(gen.NoiseDropped)

	var inferred inference.Result
	_ = s.stage(ctx, StageInfer, func(context.Context) error {
		opening := inference.DetectOpeningBalance(job.Pages).WithHint(gen.OpeningBalanceHint)
		if opening.Value.Valid {
			job.Metadata[MetaOpeningBalance] = toFloat(opening.Value.Decimal)
			job.Metadata[MetaOpeningBalanceSource] = opening.Source
		}
		if opening.Summary != nil {
			job.Metadata[MetaDeclaredSummary] = DeclaredSummary{
				Opening: toFloat(opening.Summary.Opening),
				Debits:  toFloat(opening.Summary.Debits),
				Credits: toFloat(opening.Summary.Credits),
				Closing: toFloat(opening.Summary.Closing),
			}
		}
		inferred = s.inference.Infer(gen.Candidates, opening, inference.Stamp{
			BankCode:      job.BankCode,
			AccountNumber: job.AccountNumber,
		})
		return nil
	})
	job.Stats["discarded"] = float64(inferred.Discarded)
	job.Stats["dropped"] = float64(inferred.Dropped)
	txs := inferred.Transactions

	_ = s.stage(ctx, StageNormalize, func(ctx context.Context) error {
		st := s.normalizer.Normalize(ctx, txs)
		job.Stats["enriched"] = float64(st.Enriched)
		s.metrics.CountEnrichments(st.Enriched)
		return nil
	})

	var validation artifact.ValidationResult
	_ = s.stage(ctx, StageValidate, func(context.Context) error {
		validation = reconcile.Validate(txs)
		return nil
	})
	job.Metadata[MetaValidation] = toValidation(validation)
	if validation.Valid {
		job.Metadata[MetaResultQuality] = QualityComplete
	} else {
		job.Metadata[MetaResultQuality] = QualityPartialSuccess
	}

	resp := s.assemble(job, txs)
	s.metrics.CountTransactions(len(resp.Transactions))
	s.persist(ctx, resp)
	resp.Metadata[MetaStats] = job.Stats
	return resp
}

// persist hands the response to the sink. Failures never change the status.
func (s *Service) persist(ctx context.Context, resp *Response) {
	if s.sink == nil {
		return
	}
	err := s.stage(ctx, StagePersist, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return s.sink.Save(ctx, resp)
	})
	if err != nil {
		s.logger.Error("failed to persist statement",
			slog.String("statement_id", resp.StatementID),
			slog.Any("error", err))
		resp.Metadata[MetaPersistError] = err.Error()
	}
}

// stage runs fn inside a span and records its duration.
func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "statement."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) assemble(job *artifact.JobContext, txs []artifact.FinalTransaction) *Response {
	if job.Diagnostics() == nil {
		job.Metadata[MetaDiagnostics] = []string{}
	}
	resp := &Response{
		Status:        StatusSuccess,
		StatementID:   job.StatementID,
		Bank:          job.BankCode,
		AccountHolder: job.AccountHolder,
		Metadata:      job.Metadata,
		Transactions:  make([]Transaction, 0, len(txs)),
	}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, toTransaction(tx))
	}
	return resp
}

// failFor maps a stage error onto a needs_password or failed response.
func (s *Service) failFor(job *artifact.JobContext, err error) *Response {
	if errors.Is(err, integrity.ErrPasswordRequired) {
		s.logger.Info("document needs a password", slog.String("path", job.SourcePath))
		return s.fail(job, StatusNeedsPassword, err)
	}
	var ie *integrity.IntegrityError
	if errors.As(err, &ie) {
		s.logger.Warn("integrity check failed",
			slog.String("path", job.SourcePath),
			slog.String("reason", ie.Reason),
			slog.Any("error", err))
	} else {
		s.logger.Error("extraction failed",
			slog.String("path", job.SourcePath),
			slog.Any("error", err))
	}
	return s.fail(job, StatusFailed, err)
}

func (s *Service) fail(job *artifact.JobContext, status Status, err error) *Response {
	return &Response{
		Status:        status,
		StatementID:   job.StatementID,
		Bank:          job.BankCode,
		AccountHolder: job.AccountHolder,
		Metadata:      job.Metadata,
		Transactions:  []Transaction{},
		Error:         err.Error(),
	}
}

func rowsSample(pages []*artifact.PageArtifact, n int) []string {
	out := make([]string, 0, n)
	for _, page := range pages {
		for _, row := range page.Rows {
			if len(out) == n {
				return out
			}
			out = append(out, row.Text())
		}
	}
	return out
}
