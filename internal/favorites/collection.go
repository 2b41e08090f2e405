// Package favorites keeps the favorited-hotels collection: a durable,
// lazily hydrated cache plus the CRUD, sorting, search, stats and
// import/export operations over it.
package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/artpar/staykeep/internal/ident"
	"github.com/artpar/staykeep/internal/storage"
)

// Collection is the favorites collection. Every operation waits for the
// cache to be initialized first.
type Collection struct {
	cache  *Cache
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Collection) {
		c.logger = logger
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collection) {
		c.now = now
	}
}

// NewCollection creates a collection persisted through engine.
func NewCollection(engine storage.Engine, opts ...Option) *Collection {
	c := &Collection{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = NewCache(engine, c.logger, c.now)
	return c
}

// Initialize hydrates the underlying cache. Safe to call repeatedly.
func (c *Collection) Initialize(ctx context.Context) error {
	return c.cache.Initialize(ctx)
}

// Cache exposes the persistent cache, mainly for diagnostics.
func (c *Collection) Cache() *Cache {
	return c.cache
}

// Add inserts entry or replaces the entry with the same normalized id.
func (c *Collection) Add(ctx context.Context, entry Entry) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	entry.ID = ident.Normalize(entry.ID)
	if entry.ID == "" {
		return ErrInvalidID
	}

	return c.cache.update(ctx, func(state *entries) (bool, error) {
		state.put(entry, c.now())
		return true, nil
	})
}

// Remove deletes the favorite with the given id. Removing an absent id is
// a logged no-op.
func (c *Collection) Remove(ctx context.Context, id any) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	key := ident.Normalize(id)
	return c.cache.update(ctx, func(state *entries) (bool, error) {
		if !state.remove(key) {
			c.logger.Warn("favorite not found, nothing to remove", zap.String("id", key))
			return false, nil
		}
		return true, nil
	})
}

// Toggle adds entry if it is absent and removes it otherwise. It returns
// whether the entry is favorited afterwards.
func (c *Collection) Toggle(ctx context.Context, entry Entry) (bool, error) {
	if err := c.Initialize(ctx); err != nil {
		return false, err
	}

	entry.ID = ident.Normalize(entry.ID)
	if entry.ID == "" {
		return false, ErrInvalidID
	}

	var favorited bool
	err := c.cache.update(ctx, func(state *entries) (bool, error) {
		if state.remove(entry.ID) {
			favorited = false
			return true, nil
		}
		state.put(entry, c.now())
		favorited = true
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return favorited, nil
}

// IsFavorited reports whether id is in the collection.
func (c *Collection) IsFavorited(ctx context.Context, id any) (bool, error) {
	if err := c.Initialize(ctx); err != nil {
		return false, err
	}

	key := ident.Normalize(id)
	var ok bool
	c.cache.view(func(state *entries) {
		_, ok = state.byID[key]
	})
	return ok, nil
}

// Get returns the favorite with the given id.
func (c *Collection) Get(ctx context.Context, id any) (Entry, error) {
	if err := c.Initialize(ctx); err != nil {
		return Entry{}, err
	}

	key := ident.Normalize(id)
	var (
		rec record
		ok  bool
	)
	c.cache.view(func(state *entries) {
		rec, ok = state.byID[key]
	})
	if !ok {
		return Entry{}, ErrNotFound
	}
	return rec.entry, nil
}

// GetAll returns every favorite, most recently added first.
func (c *Collection) GetAll(ctx context.Context) ([]Entry, error) {
	return c.GetSorted(ctx, SortRecent)
}

// GetSorted returns every favorite ordered by the given criteria. The sort
// is stable; ties keep insertion order.
func (c *Collection) GetSorted(ctx context.Context, by SortBy) ([]Entry, error) {
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	var less func(a, b Entry) bool
	switch by {
	case SortRecent, "":
		less = func(a, b Entry) bool { return a.AddedAt.After(b.AddedAt) }
	case SortName:
		less = func(a, b Entry) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortLocation:
		less = func(a, b Entry) bool { return strings.ToLower(a.Location) < strings.ToLower(b.Location) }
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSort, by)
	}

	list := c.snapshot()
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
	return list, nil
}

// Search returns favorites whose name or location contains query,
// ignoring case, in GetAll order.
func (c *Collection) Search(ctx context.Context, query string) ([]Entry, error) {
	all, err := c.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}

	var results []Entry
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.Location), q) {
			results = append(results, e)
		}
	}
	return results, nil
}

// Stats derives summary statistics from the current collection.
func (c *Collection) Stats(ctx context.Context) (Stats, error) {
	all, err := c.GetAll(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalFavorites:      len(all),
		FavoritesByLocation: make(map[string]int),
	}
	if len(all) == 0 {
		return stats, nil
	}

	newest := all[0]
	oldest := all[len(all)-1]
	stats.NewestFavorite = &newest
	stats.OldestFavorite = &oldest

	for _, e := range all {
		loc := strings.TrimSpace(e.Location)
		if loc == "" {
			loc = UnknownLocation
		}
		stats.FavoritesByLocation[loc]++
	}
	return stats, nil
}

// Export serializes the collection in GetAll order.
func (c *Collection) Export(ctx context.Context) (string, error) {
	all, err := c.GetAll(ctx)
	if err != nil {
		return "", err
	}
	if all == nil {
		all = []Entry{}
	}

	doc := ExportDocument{
		Favorites:  all,
		ExportedAt: c.now().UTC().Truncate(time.Millisecond),
		Version:    ExportVersion,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode favorites export: %w", err)
	}
	return string(data), nil
}

// Import loads favorites from an export document. Without merge the
// collection is cleared first; with merge imported entries overwrite
// existing ones by id. It returns the number of entries imported.
func (c *Collection) Import(ctx context.Context, data string, merge bool) (int, error) {
	if err := c.Initialize(ctx); err != nil {
		return 0, err
	}

	doc, err := ParseExport(data)
	if err != nil {
		return 0, err
	}
	if doc.Version != "" && doc.Version != ExportVersion {
		c.logger.Warn("importing favorites from unknown export version",
			zap.String("version", doc.Version))
	}

	imported := 0
	err = c.cache.update(ctx, func(state *entries) (bool, error) {
		if !merge {
			*state = *newEntries()
		}
		for _, entry := range doc.Favorites {
			if entry.ID == "" {
				c.logger.Warn("skipping imported favorite without id", zap.String("name", entry.Name))
				continue
			}
			state.put(entry, c.now())
			imported++
		}
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	c.logger.Info("favorites imported", zap.Int("count", imported), zap.Bool("merge", merge))
	return imported, nil
}

// Replace swaps the whole collection for list. Entries are inserted in the
// given order; entries without an id are skipped.
func (c *Collection) Replace(ctx context.Context, list []Entry) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	return c.cache.update(ctx, func(state *entries) (bool, error) {
		*state = *newEntries()
		for _, entry := range list {
			entry.ID = ident.Normalize(entry.ID)
			if entry.ID == "" {
				continue
			}
			state.put(entry, c.now())
		}
		return true, nil
	})
}

// ParseExport decodes and validates an export document.
func ParseExport(data string) (ExportDocument, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &probe); err != nil {
		return ExportDocument{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if _, ok := probe["favorites"]; !ok {
		return ExportDocument{}, fmt.Errorf("%w: missing favorites array", ErrInvalidImport)
	}

	var doc ExportDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return ExportDocument{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if doc.Favorites == nil {
		return ExportDocument{}, fmt.Errorf("%w: favorites is not an array", ErrInvalidImport)
	}
	return doc, nil
}

// Clear removes every favorite and the persisted documents.
func (c *Collection) Clear(ctx context.Context) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	return c.cache.Reset(ctx)
}

// Count returns the number of favorites.
func (c *Collection) Count(ctx context.Context) (int, error) {
	if err := c.Initialize(ctx); err != nil {
		return 0, err
	}

	var n int
	c.cache.view(func(state *entries) {
		n = len(state.byID)
	})
	return n, nil
}

// Metadata returns the last persisted diagnostics record.
func (c *Collection) Metadata() Metadata {
	return c.cache.Metadata()
}

func (c *Collection) snapshot() []Entry {
	var list []Entry
	c.cache.view(func(state *entries) {
		list = state.ordered()
	})
	return list
}
