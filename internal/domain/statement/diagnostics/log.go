// Package diagnostics keeps an append-only CSV log of low-confidence
// extractions for offline review. The pipeline never reads it back.
package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
)

// ErrClosed is returned when appending to a closed log.
var ErrClosed = errors.New("diagnostic log closed")

// Entry is one low-confidence observation.
type Entry struct {
	Timestamp   string  `csv:"timestamp"`
	StatementID string  `csv:"statement_id"`
	Stage       string  `csv:"stage"`
	Page        int     `csv:"page"`
	Text        string  `csv:"text"`
	Confidence  float64 `csv:"confidence"`
	Reason      string  `csv:"reason"`
}

// Sink receives low-confidence observations.
type Sink interface {
	Append(entries ...Entry) error
}

// Log is a mutex-guarded CSV file safe for concurrent appends from many
// simultaneous jobs.
type Log struct {
	path string
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// Open opens or creates the log at path. The header row is written only
// when the file is new.
func Open(path string) (*Log, error) {
	l := &Log{path: path, now: time.Now}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Log) open() error {
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create diagnostic dir: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open diagnostic log: %w", err)
	}
	l.file = f
	return nil
}

// Append writes entries as CSV rows.
func (l *Log) Append(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return ErrClosed
	}

	ts := l.now().UTC().Format(time.RFC3339)
	for i := range entries {
		if entries[i].Timestamp == "" {
			entries[i].Timestamp = ts
		}
	}

	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("stat diagnostic log: %w", err)
	}
	if info.Size() == 0 {
		err = gocsv.MarshalFile(&entries, l.file)
	} else {
		err = gocsv.MarshalWithoutHeaders(&entries, l.file)
	}
	if err != nil {
		return fmt.Errorf("write diagnostic entries: %w", err)
	}
	return nil
}

// Rotate moves the current file aside with a timestamp suffix and starts a
// fresh one. It returns the rotated path, or "" when the log was empty.
func (l *Log) Rotate() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return "", ErrClosed
	}
	info, err := l.file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat diagnostic log: %w", err)
	}
	if info.Size() == 0 {
		return "", nil
	}
	if err := l.file.Close(); err != nil {
		return "", fmt.Errorf("close diagnostic log: %w", err)
	}
	l.file = nil

	rotated := fmt.Sprintf("%s.%s", l.path, l.now().UTC().Format("20060102T150405"))
	if err := os.Rename(l.path, rotated); err != nil {
		return "", fmt.Errorf("rotate diagnostic log: %w", err)
	}
	if err := l.open(); err != nil {
		return "", err
	}
	return rotated, nil
}

// Close flushes and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Path returns the active log path.
func (l *Log) Path() string { return l.path }

// ReadAll loads every entry in a log file. It is meant for review tooling
// and tests.
func ReadAll(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	if err := gocsv.UnmarshalFile(f, &entries); err != nil {
		return nil, fmt.Errorf("read diagnostic log: %w", err)
	}
	return entries, nil
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Append(...Entry) error { return nil }
