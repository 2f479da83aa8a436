package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRotator struct {
	calls int
	err   error
}

func (f *fakeRotator) Rotate() (string, error) {
	f.calls++
	return "diag.csv.20260101T000000", f.err
}

type fakePurger struct {
	cutoff time.Time
	calls  int
}

func (f *fakePurger) Purge(_ context.Context, cutoff time.Time) (int, error) {
	f.calls++
	f.cutoff = cutoff
	return 2, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunNow(t *testing.T) {
	rotator := &fakeRotator{}
	purger := &fakePurger{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	s := NewScheduler(rotator, purger, 24*time.Hour, quietLogger())
	s.now = func() time.Time { return now }
	s.RunNow()

	assert.Equal(t, 1, rotator.calls)
	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, now.Add(-24*time.Hour), purger.cutoff)
}

func TestScheduler_RotateErrorIsLogged(t *testing.T) {
	rotator := &fakeRotator{err: errors.New("disk full")}
	s := NewScheduler(rotator, nil, 0, quietLogger())
	assert.NotPanics(t, s.RunNow)
	assert.Equal(t, 1, rotator.calls)
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name      string
		rotator   LogRotator
		purger    UploadPurger
		retainFor time.Duration
		rotate    string
		wantJobs  int
		wantErr   bool
	}{
		{name: "both jobs", rotator: &fakeRotator{}, purger: &fakePurger{}, retainFor: time.Hour, wantJobs: 2},
		{name: "no retention", rotator: &fakeRotator{}, purger: &fakePurger{}, wantJobs: 1},
		{name: "nothing", wantJobs: 0},
		{name: "bad cron expression", rotator: &fakeRotator{}, rotate: "every tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(tt.rotator, tt.purger, tt.retainFor, quietLogger()).WithSchedules(tt.rotate, "")
			err := s.Start()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Stop()
			assert.Len(t, s.cron.Entries(), tt.wantJobs)
		})
	}
}
