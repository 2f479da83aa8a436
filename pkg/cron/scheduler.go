// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Default schedules (standard 5-field format).
const (
	DefaultRotateSpec = "0 0 * * *"
	DefaultPurgeSpec  = "30 * * * *"
)

// LogRotator is the diagnostic log.
type LogRotator interface {
	Rotate() (string, error)
}

// UploadPurger is the upload spool.
type UploadPurger interface {
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	rotator   LogRotator
	purger    UploadPurger
	retainFor time.Duration
	rotate    string
	purge     string
	now       func() time.Time
	logger    *slog.Logger
}

// NewScheduler creates a new job scheduler. Either dependency may be nil,
// in which case its job is not registered.
func NewScheduler(rotator LogRotator, purger UploadPurger, retainFor time.Duration, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		rotator:   rotator,
		purger:    purger,
		retainFor: retainFor,
		rotate:    DefaultRotateSpec,
		purge:     DefaultPurgeSpec,
		now:       time.Now,
		logger:    logger,
	}
}

// WithSchedules overrides the cron specs. Empty values keep the defaults.
func (s *Scheduler) WithSchedules(rotate, purge string) *Scheduler {
	if rotate != "" {
		s.rotate = rotate
	}
	if purge != "" {
		s.purge = purge
	}
	return s
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if s.rotator != nil {
		if _, err := s.cron.AddFunc(s.rotate, s.rotateDiagnostics); err != nil {
			return err
		}
	}
	if s.purger != nil && s.retainFor > 0 {
		if _, err := s.cron.AddFunc(s.purge, s.purgeUploads); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs every job once, synchronously.
func (s *Scheduler) RunNow() {
	if s.rotator != nil {
		s.rotateDiagnostics()
	}
	if s.purger != nil && s.retainFor > 0 {
		s.purgeUploads()
	}
}

// rotateDiagnostics starts a fresh diagnostic log file.
func (s *Scheduler) rotateDiagnostics() {
	archived, err := s.rotator.Rotate()
	if err != nil {
		s.logger.Error("failed to rotate diagnostic log", slog.Any("error", err))
		return
	}
	if archived == "" {
		s.logger.Debug("diagnostic log empty, nothing rotated")
		return
	}
	s.logger.Info("diagnostic log rotated", slog.String("archive", archived))
}

// purgeUploads drops retained uploads older than retainFor.
func (s *Scheduler) purgeUploads() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := s.purger.Purge(ctx, s.now().Add(-s.retainFor))
	if err != nil {
		s.logger.Warn("upload purge incomplete",
			slog.Int("removed", removed),
			slog.Any("error", err),
		)
		return
	}
	s.logger.Info("upload purge completed", slog.Int("removed", removed))
}
