package favorites

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/artpar/staykeep/internal/storage"
)

// Storage keys of the two persisted documents.
const (
	KeyFavorites = "hotel_favorites"
	KeyMetadata  = "hotel_favorites_metadata"
)

type record struct {
	entry Entry
	seq   int64
}

// entries is the in-memory map plus the insertion counter used to break
// sort ties.
type entries struct {
	byID    map[string]record
	nextSeq int64
}

func newEntries() *entries {
	return &entries{byID: make(map[string]record)}
}

func (e *entries) clone() *entries {
	c := &entries{byID: make(map[string]record, len(e.byID)), nextSeq: e.nextSeq}
	for id, r := range e.byID {
		c.byID[id] = r
	}
	return c
}

// put inserts or replaces entry. A replacement without its own AddedAt
// keeps the original timestamp and position.
func (e *entries) put(entry Entry, now time.Time) {
	existing, exists := e.byID[entry.ID]
	if entry.AddedAt.IsZero() {
		if exists {
			entry.AddedAt = existing.entry.AddedAt
		} else {
			entry.AddedAt = now
		}
	}
	entry.AddedAt = entry.AddedAt.UTC().Truncate(time.Millisecond)

	seq := existing.seq
	if !exists {
		seq = e.nextSeq
		e.nextSeq++
	}
	e.byID[entry.ID] = record{entry: entry, seq: seq}
}

func (e *entries) remove(id string) bool {
	if _, ok := e.byID[id]; !ok {
		return false
	}
	delete(e.byID, id)
	return true
}

// ordered returns entries in insertion order.
func (e *entries) ordered() []Entry {
	recs := make([]record, 0, len(e.byID))
	for _, r := range e.byID {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	out := make([]Entry, len(recs))
	for i, r := range recs {
		out[i] = r.entry
	}
	return out
}

// Cache is the durable local copy of the favorites collection. It hydrates
// lazily from a storage.Engine on first use and writes through on every
// mutation.
type Cache struct {
	engine storage.Engine
	logger *zap.Logger
	now    func() time.Time

	initMu       sync.Mutex
	initDone     chan struct{}
	initFinished bool
	initErr      error

	mu       sync.RWMutex
	state    *entries
	metadata Metadata
}

// NewCache creates a cache over engine. Nothing is read until Initialize.
func NewCache(engine storage.Engine, logger *zap.Logger, now func() time.Time) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		engine: engine,
		logger: logger,
		now:    now,
		state:  newEntries(),
	}
}

// Initialize hydrates the cache once per process. Callers that arrive while
// the load is running wait for it and receive its result; callers that
// arrive afterwards get nil. A failed load leaves the cache empty but still
// initialized.
func (c *Cache) Initialize(ctx context.Context) error {
	c.initMu.Lock()
	if c.initFinished {
		c.initMu.Unlock()
		return nil
	}
	if c.initDone != nil {
		done := c.initDone
		c.initMu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.initMu.Lock()
		defer c.initMu.Unlock()
		return c.initErr
	}
	c.initDone = make(chan struct{})
	c.initMu.Unlock()

	err := c.load(ctx)

	c.initMu.Lock()
	c.initErr = err
	c.initFinished = true
	close(c.initDone)
	c.initMu.Unlock()

	return err
}

// Initialized reports whether a load has completed, successfully or not.
func (c *Cache) Initialized() bool {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	return c.initFinished
}

func (c *Cache) load(ctx context.Context) error {
	raw, found, err := c.engine.Get(ctx, KeyFavorites)
	if err != nil {
		c.logger.Error("failed to read favorites", zap.Error(err))
		return &StorageError{Op: "load", Err: err}
	}

	var stored []Entry
	if found && raw != "" {
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			c.logger.Error("failed to decode favorites", zap.Error(err))
			return &StorageError{Op: "decode", Err: err}
		}
	}

	var meta Metadata
	rawMeta, found, err := c.engine.Get(ctx, KeyMetadata)
	if err != nil {
		c.logger.Error("failed to read favorites metadata", zap.Error(err))
		return &StorageError{Op: "load metadata", Err: err}
	}
	if found && rawMeta != "" {
		if err := json.Unmarshal([]byte(rawMeta), &meta); err != nil {
			// Metadata is diagnostic only.
			c.logger.Warn("ignoring unreadable favorites metadata", zap.Error(err))
		}
	}

	state := newEntries()
	now := c.now()
	migrated := 0
	for _, entry := range stored {
		if entry.ID == "" {
			c.logger.Warn("skipping stored favorite without id", zap.String("name", entry.Name))
			continue
		}
		if entry.AddedAt.IsZero() {
			entry.AddedAt = now
			migrated++
		}
		state.put(entry, now)
	}

	c.mu.Lock()
	c.state = state
	c.metadata = meta
	c.mu.Unlock()

	c.logger.Debug("favorites cache hydrated",
		zap.Int("count", len(state.byID)),
		zap.Int("migrated", migrated))

	if migrated > 0 {
		if err := c.Persist(ctx); err != nil {
			c.logger.Warn("failed to persist migrated favorites", zap.Error(err))
		}
	}
	return nil
}

// Persist writes the current in-memory state and a fresh metadata record.
func (c *Cache) Persist(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta, err := c.write(ctx, c.state)
	if err != nil {
		return err
	}
	c.metadata = meta
	return nil
}

// write serializes state to the engine. The favorites document is
// authoritative; a failed metadata write is only logged.
func (c *Cache) write(ctx context.Context, state *entries) (Metadata, error) {
	list := state.ordered()
	data, err := json.Marshal(list)
	if err != nil {
		return Metadata{}, &StorageError{Op: "encode", Err: err}
	}
	if err := c.engine.Set(ctx, KeyFavorites, string(data)); err != nil {
		c.logger.Error("failed to persist favorites", zap.Error(err))
		return Metadata{}, &StorageError{Op: "persist", Err: err}
	}

	meta := Metadata{LastUpdated: c.now().UnixMilli(), Count: len(list)}
	metaData, err := json.Marshal(meta)
	if err == nil {
		err = c.engine.Set(ctx, KeyMetadata, string(metaData))
	}
	if err != nil {
		c.logger.Warn("failed to persist favorites metadata", zap.Error(err))
	}
	return meta, nil
}

// update applies fn to a copy of the state and persists it. The copy
// replaces the live state only when the write succeeds.
func (c *Cache) update(ctx context.Context, fn func(state *entries) (changed bool, err error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.clone()
	changed, err := fn(next)
	if err != nil || !changed {
		return err
	}

	meta, err := c.write(ctx, next)
	if err != nil {
		return err
	}
	c.state = next
	c.metadata = meta
	return nil
}

// view runs fn against the live state under a read lock.
func (c *Cache) view(fn func(state *entries)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.state)
}

// Reset drops every entry and removes both documents from the engine.
func (c *Cache) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.engine.Remove(ctx, KeyFavorites); err != nil {
		return &StorageError{Op: "clear", Err: err}
	}
	if err := c.engine.Remove(ctx, KeyMetadata); err != nil {
		c.logger.Warn("failed to remove favorites metadata", zap.Error(err))
	}
	c.state = newEntries()
	c.metadata = Metadata{LastUpdated: c.now().UnixMilli()}
	return nil
}

// Metadata returns the last metadata record read or written.
func (c *Cache) Metadata() Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metadata
}
