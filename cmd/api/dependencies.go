package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/diagnostics"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/handler"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/integrity"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/normalizer"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/repository"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/service"

	"github.com/FACorreiaa/statement-extractor/pkg/config"
	"github.com/FACorreiaa/statement-extractor/pkg/cron"
	"github.com/FACorreiaa/statement-extractor/pkg/db"
	"github.com/FACorreiaa/statement-extractor/pkg/observability"
	"github.com/FACorreiaa/statement-extractor/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	StatementRepo *repository.StatementRepository
	OverrideStore *repository.OverrideStore

	// Services
	Metrics      *observability.Metrics
	Diagnostics  *diagnostics.Log
	FileStorage  storage.Storage
	Profiles     []artifact.BankProfile
	StatementSvc *service.Service
	Scheduler    *cron.Scheduler

	// Handlers
	StatementHandler *handler.StatementHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	deps.initRepositories()

	// Initialize services
	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully",
		slog.Bool("persistence", deps.DB != nil),
		slog.Int("bank_profiles", len(deps.Profiles)),
	)

	return deps, nil
}

// initDatabase connects and migrates when persistence is enabled.
func (d *Dependencies) initDatabase() error {
	if !d.Config.Database.Enabled {
		d.Logger.Info("persistence disabled, statements will not be stored")
		return nil
	}

	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	if d.DB == nil {
		return
	}
	d.StatementRepo = repository.NewStatementRepository(d.DB.Pool, d.Logger)
	d.OverrideStore = repository.NewOverrideStore(d.DB.Pool, d.Logger)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	pcfg := d.Config.Pipeline

	if d.Config.Observability.MetricsEnabled {
		d.Metrics = observability.NewMetrics()
	}

	profiles, err := loadProfiles(pcfg.ProfilesPath)
	if err != nil {
		return err
	}
	d.Profiles = profiles

	if pcfg.DiagnosticLogPath != "" {
		diag, err := diagnostics.Open(pcfg.DiagnosticLogPath)
		if err != nil {
			return fmt.Errorf("failed to open diagnostic log: %w", err)
		}
		d.Diagnostics = diag
	}

	fileStorage, err := storage.New(&storage.Config{
		Type:      storage.StorageTypeLocal,
		LocalPath: d.Config.Storage.LocalPath,
		Retain:    d.Config.Storage.Retain,
		RetainFor: d.Config.Storage.RetainFor,
	})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	norm := normalizer.NewEngine(d.Logger)
	if d.OverrideStore != nil {
		norm = norm.WithOverrides(d.OverrideStore)
	}
	enricher, err := newEnricher(ctx, d.Config.Gemini, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to init enrichment: %w", err)
	}
	if enricher != nil {
		norm = norm.WithEnricher(enricher, pcfg.EnrichThreshold)
	}

	d.StatementSvc = service.New(d.Logger).
		WithGate(integrity.NewGate(pcfg.TempDir, d.Logger)).
		WithNormalizer(norm).
		WithMetrics(d.Metrics).
		WithProfiles(d.Profiles).
		WithMaxPages(pcfg.MaxPages)
	if d.Diagnostics != nil {
		d.StatementSvc = d.StatementSvc.WithDiagnostics(d.Diagnostics, pcfg.LowConfidence)
	}
	if d.StatementRepo != nil {
		d.StatementSvc = d.StatementSvc.WithSink(d.StatementRepo)
	}

	d.Scheduler = d.newScheduler()

	d.Logger.Info("services initialized")
	return nil
}

func (d *Dependencies) newScheduler() *cron.Scheduler {
	var rotator cron.LogRotator
	if d.Diagnostics != nil {
		rotator = d.Diagnostics
	}
	var purger cron.UploadPurger
	if d.Config.Storage.Retain {
		purger = d.FileStorage
	}
	return cron.NewScheduler(rotator, purger, d.Config.Storage.RetainFor, d.Logger).
		WithSchedules(d.Config.Pipeline.DiagnosticRotateCron, d.Config.Storage.PurgeCron)
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	h := handler.NewStatementHandler(d.StatementSvc, d.FileStorage, d.Logger).
		WithRetain(d.Config.Storage.Retain).
		WithLimits(int64(d.Config.Server.MaxUploadMB)<<20, d.Config.Server.RequestTimeout)
	if d.StatementRepo != nil {
		h = h.WithStore(d.StatementRepo)
	}
	d.StatementHandler = h

	d.Logger.Info("handlers initialized")
}

// Routes returns the application mux.
func (d *Dependencies) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	d.StatementHandler.Register(mux)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}
	return mux
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Diagnostics != nil {
		if err := d.Diagnostics.Close(); err != nil {
			d.Logger.Error("failed to close diagnostic log", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}

// loadProfiles reads the bank profile file; an empty path means the
// built-in detector only.
func loadProfiles(path string) ([]artifact.BankProfile, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bank profiles: %w", err)
	}
	defer f.Close()

	profiles, err := artifact.LoadProfiles(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank profiles: %w", err)
	}
	return profiles, nil
}
