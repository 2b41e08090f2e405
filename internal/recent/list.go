// Package recent keeps the bounded, deduplicated, most-recent-first list
// of search queries.
package recent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/artpar/staykeep/internal/storage"
)

// MaxEntries is the maximum number of retained queries.
const MaxEntries = 10

// StorageKey is the engine key recent searches persist under.
const StorageKey = "recent_searches"

// ErrEmptyQuery classifies blank queries. Add swallows it; it is exported
// so callers validating input up front can reuse the same rule.
var ErrEmptyQuery = errors.New("search query is empty")

// List is a recency-ordered list of unique queries.
type List struct {
	mu      sync.RWMutex
	entries []string
	engine  storage.Engine
	logger  *zap.Logger
}

// Option configures a List.
type Option func(*List)

// WithEngine persists the list through engine under StorageKey.
func WithEngine(engine storage.Engine) Option {
	return func(l *List) {
		l.engine = engine
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *List) {
		l.logger = logger
	}
}

// New creates an empty list.
func New(opts ...Option) *List {
	l := &List{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Validate trims query and reports ErrEmptyQuery for blank input.
func Validate(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", ErrEmptyQuery
	}
	return q, nil
}

// Load hydrates the list from its engine. Without an engine it is a no-op.
func (l *List) Load(ctx context.Context) error {
	if l.engine == nil {
		return nil
	}

	raw, found, err := l.engine.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("failed to read recent searches: %w", err)
	}
	if !found || raw == "" {
		return nil
	}

	var stored []string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("failed to decode recent searches: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = normalize(stored)
	return nil
}

// Add records query as the most recent search. A non-empty replaceHint
// different from query names an earlier search the user refined; it is
// replaced instead of kept. Blank queries are ignored.
func (l *List) Add(ctx context.Context, query, replaceHint string) error {
	q, err := Validate(query)
	if err != nil {
		l.logger.Debug("ignoring recent search", zap.Error(err))
		return nil
	}
	hint := strings.TrimSpace(replaceHint)

	return l.mutate(ctx, func(entries []string) []string {
		if hint != "" && hint != q {
			entries = without(entries, hint)
		}
		entries = without(entries, q)
		entries = append([]string{q}, entries...)
		if len(entries) > MaxEntries {
			entries = entries[:MaxEntries]
		}
		return entries
	})
}

// Remove deletes query from the list.
func (l *List) Remove(ctx context.Context, query string) error {
	q := strings.TrimSpace(query)
	return l.mutate(ctx, func(entries []string) []string {
		return without(entries, q)
	})
}

// Clear empties the list.
func (l *List) Clear(ctx context.Context) error {
	return l.mutate(ctx, func([]string) []string {
		return nil
	})
}

// Replace swaps the whole list, applying the usual dedup and cap rules.
func (l *List) Replace(ctx context.Context, queries []string) error {
	return l.mutate(ctx, func([]string) []string {
		return normalize(queries)
	})
}

// Get returns a copy of the list, most recent first.
func (l *List) Get() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of queries.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *List) mutate(ctx context.Context, fn func(entries []string) []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := make([]string, len(l.entries))
	copy(current, l.entries)
	next := fn(current)

	if l.engine != nil {
		if next == nil {
			next = []string{}
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode recent searches: %w", err)
		}
		if err := l.engine.Set(ctx, StorageKey, string(data)); err != nil {
			return fmt.Errorf("failed to persist recent searches: %w", err)
		}
	}

	l.entries = next
	return nil
}

func without(entries []string, query string) []string {
	out := entries[:0]
	for _, e := range entries {
		if e != query {
			out = append(out, e)
		}
	}
	return out
}

// normalize trims, drops blanks and duplicates (first occurrence wins) and
// caps the result.
func normalize(queries []string) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == MaxEntries {
			break
		}
	}
	return out
}
