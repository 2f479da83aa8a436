// Package enrich defines the optional AI enrichment capability used to fill
// entity fields the deterministic extractors could not resolve. Every
// implementation degrades to "no enrichment" instead of failing.
package enrich

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ParsedFields are the entity fields an enricher may return.
type ParsedFields struct {
	Store     string `json:"store"`
	Person    string `json:"person"`
	Commodity string `json:"commodity"`
}

// Empty reports whether no field was filled.
func (p ParsedFields) Empty() bool {
	return p.Store == "" && p.Person == "" && p.Commodity == ""
}

// Enricher tries to extract entity fields from free text.
type Enricher interface {
	TryEnrich(ctx context.Context, text string) (*ParsedFields, bool)
}

// Cache is a process-lifetime store of enrichment results. Misses are
// cached too so a failing text is not retried on every statement.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*ParsedFields
	max     int
}

// NewCache returns a cache holding at most max entries. When full, new
// results are not stored.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = 10000
	}
	return &Cache{entries: make(map[string]*ParsedFields), max: max}
}

func cacheKey(text string) string {
	return strings.ToUpper(strings.Join(strings.Fields(text), " "))
}

// Get returns a cached result. found is false on a cold key.
func (c *Cache) Get(text string) (fields *ParsedFields, found bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fields, found = c.entries[cacheKey(text)]
	return fields, found
}

// Put stores a result; nil records a miss.
func (c *Cache) Put(text string, fields *ParsedFields) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(text)
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		return
	}
	c.entries[key] = fields
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cached wraps an enricher with a Cache.
type Cached struct {
	next  Enricher
	cache *Cache
}

// NewCached returns next fronted by cache.
func NewCached(next Enricher, cache *Cache) *Cached {
	return &Cached{next: next, cache: cache}
}

func (c *Cached) TryEnrich(ctx context.Context, text string) (*ParsedFields, bool) {
	if fields, found := c.cache.Get(text); found {
		return fields, fields != nil
	}
	fields, ok := c.next.TryEnrich(ctx, text)
	if ctx.Err() != nil {
		// Cancelled calls say nothing about the text.
		return nil, false
	}
	if !ok {
		fields = nil
	}
	c.cache.Put(text, fields)
	return fields, ok
}

// Bounded gives every call a deadline and absorbs panics.
type Bounded struct {
	next    Enricher
	timeout time.Duration
	logger  *slog.Logger
}

// NewBounded wraps next with a per-call timeout.
func NewBounded(next Enricher, timeout time.Duration, logger *slog.Logger) *Bounded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bounded{next: next, timeout: timeout, logger: logger}
}

type outcome struct {
	fields *ParsedFields
	ok     bool
}

func (b *Bounded) TryEnrich(ctx context.Context, text string) (*ParsedFields, bool) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Warn("enricher panicked", slog.Any("panic", r))
				done <- outcome{}
			}
		}()
		fields, ok := b.next.TryEnrich(ctx, text)
		done <- outcome{fields: fields, ok: ok}
	}()

	select {
	case out := <-done:
		if !out.ok || out.fields == nil || out.fields.Empty() {
			return nil, false
		}
		return out.fields, true
	case <-ctx.Done():
		b.logger.Debug("enrichment timed out", slog.Duration("timeout", b.timeout))
		return nil, false
	}
}
