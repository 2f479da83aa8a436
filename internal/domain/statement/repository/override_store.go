package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/enrich"
)

// Match types for an EntityOverride.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
)

// EntityOverride is a manual correction: descriptions matching the pattern
// get the given store, person and commodity.
type EntityOverride struct {
	ID            uuid.UUID  `json:"id"`
	MatchPattern  string     `json:"match_pattern"`
	MatchType     string     `json:"match_type"`
	Store         string     `json:"store"`
	PersonName    string     `json:"person_name"`
	Commodity     string     `json:"commodity"`
	MatchCount    int        `json:"match_count"`
	LastMatchedAt *time.Time `json:"last_matched_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Matches reports whether description is covered by the override.
func (o EntityOverride) Matches(description string) bool {
	if o.MatchPattern == "" || description == "" {
		return false
	}
	switch o.MatchType {
	case MatchExact:
		return strings.EqualFold(strings.TrimSpace(description), o.MatchPattern)
	default:
		return strings.Contains(strings.ToUpper(description), strings.ToUpper(o.MatchPattern))
	}
}

// Lookup tuning for Find.
const (
	DefaultSnapshotTTL   = 30 * time.Second
	DefaultLookupTimeout = 2 * time.Second
)

// OverrideStore manages entity overrides. It also acts as an
// enrich.Enricher so the normalizer can apply corrections. Lookups read
// a snapshot of the table that is refreshed at most once per TTL.
type OverrideStore struct {
	db      DB
	logger  *slog.Logger
	ttl     time.Duration
	timeout time.Duration

	mu       sync.Mutex
	snapshot []EntityOverride
	loadedAt time.Time
}

var _ enrich.Enricher = (*OverrideStore)(nil)

// NewOverrideStore creates a new override store.
func NewOverrideStore(db DB, logger *slog.Logger) *OverrideStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverrideStore{
		db:      db,
		logger:  logger,
		ttl:     DefaultSnapshotTTL,
		timeout: DefaultLookupTimeout,
	}
}

// WithLookup overrides the snapshot TTL and the per-lookup deadline.
// Zero values keep the defaults.
func (s *OverrideStore) WithLookup(ttl, timeout time.Duration) *OverrideStore {
	if ttl > 0 {
		s.ttl = ttl
	}
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

const overrideColumns = `id, match_pattern, match_type, store, person_name, commodity,
	match_count, last_matched_at, created_at, updated_at`

func scanOverride(row pgx.Row) (EntityOverride, error) {
	var o EntityOverride
	err := row.Scan(
		&o.ID, &o.MatchPattern, &o.MatchType, &o.Store, &o.PersonName, &o.Commodity,
		&o.MatchCount, &o.LastMatchedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// Save creates or updates the override for a pattern.
func (s *OverrideStore) Save(ctx context.Context, o EntityOverride) (*EntityOverride, error) {
	if o.MatchType == "" {
		o.MatchType = MatchContains
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO entity_overrides (match_pattern, match_type, store, person_name, commodity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (match_pattern) DO UPDATE SET
			match_type = EXCLUDED.match_type,
			store = EXCLUDED.store,
			person_name = EXCLUDED.person_name,
			commodity = EXCLUDED.commodity,
			updated_at = now()
		RETURNING `+overrideColumns,
		o.MatchPattern, o.MatchType, o.Store, o.PersonName, o.Commodity)

	saved, err := scanOverride(row)
	if err != nil {
		return nil, fmt.Errorf("failed to save override: %w", err)
	}
	s.invalidate()
	return &saved, nil
}

// List returns every override, most used first.
func (s *OverrideStore) List(ctx context.Context) ([]EntityOverride, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+overrideColumns+`
		FROM entity_overrides
		ORDER BY match_count DESC, updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	var overrides []EntityOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// Find returns the best override matching description, or nil. An exact
// match wins over a contains match, and a longer pattern over a shorter one.
func (s *OverrideStore) Find(ctx context.Context, description string) (*EntityOverride, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	overrides, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	var best *EntityOverride
	for i := range overrides {
		o := &overrides[i]
		if !o.Matches(description) {
			continue
		}
		if best == nil || outranks(*o, *best) {
			best = o
		}
	}
	if best == nil {
		return nil, nil
	}
	s.touch(ctx, best.ID)
	hit := *best
	return &hit, nil
}

func outranks(a, b EntityOverride) bool {
	aExact, bExact := a.MatchType == MatchExact, b.MatchType == MatchExact
	if aExact != bExact {
		return aExact
	}
	return len(a.MatchPattern) > len(b.MatchPattern)
}

// current returns the cached table, reloading it once the TTL has passed.
func (s *OverrideStore) current(ctx context.Context) ([]EntityOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot != nil && time.Since(s.loadedAt) < s.ttl {
		return s.snapshot, nil
	}
	overrides, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if overrides == nil {
		overrides = []EntityOverride{}
	}
	s.snapshot = overrides
	s.loadedAt = time.Now()
	return overrides, nil
}

func (s *OverrideStore) invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}

// touch bumps the match counter. Failures only cost statistics.
func (s *OverrideStore) touch(ctx context.Context, id uuid.UUID) {
	_, err := s.db.Exec(ctx, `
		UPDATE entity_overrides
		SET match_count = match_count + 1, last_matched_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		s.logger.Warn("failed to update override match count",
			slog.String("id", id.String()),
			slog.Any("error", err))
	}
}

// Delete removes an override.
func (s *OverrideStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM entity_overrides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	s.invalidate()
	return nil
}

// TryEnrich answers from the stored corrections.
func (s *OverrideStore) TryEnrich(ctx context.Context, text string) (*enrich.ParsedFields, bool) {
	o, err := s.Find(ctx, text)
	if err != nil {
		s.logger.Warn("override lookup failed", slog.Any("error", err))
		return nil, false
	}
	if o == nil {
		return nil, false
	}
	fields := &enrich.ParsedFields{Store: o.Store, Person: o.PersonName, Commodity: o.Commodity}
	if fields.Empty() {
		return nil, false
	}
	return fields, true
}
