package prefs

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/ident"
	"github.com/artpar/staykeep/internal/identity"
	"github.com/artpar/staykeep/internal/metrics"
	"github.com/artpar/staykeep/internal/notify"
	"github.com/artpar/staykeep/internal/remote"
)

// Service is the facade UI surfaces talk to. It resolves the operating
// mode from the identity provider, delegates to the matching store and
// notifies subscribers after successful favorite mutations.
type Service struct {
	local    *LocalOnlyStore
	remote   remote.Store
	identity identity.Provider
	notifier *notify.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	storeOps []StoreOption

	syncMu sync.Mutex

	mu      sync.RWMutex
	current PreferenceStore

	unsubscribe func()
}

// Option configures a Service.
type Option func(*Service)

// WithRemote sets the remote store used for signed-in users. Without it
// the service stays in Local mode.
func WithRemote(store remote.Store) Option {
	return func(s *Service) {
		s.remote = store
	}
}

// WithIdentity sets the identity provider.
func WithIdentity(provider identity.Provider) Option {
	return func(s *Service) {
		s.identity = provider
	}
}

// WithNotifier sets the notifier. A private one is created otherwise.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRemoteStoreOptions sets the options used for every RemoteBackedStore
// the service creates.
func WithRemoteStoreOptions(opts ...StoreOption) Option {
	return func(s *Service) {
		s.storeOps = opts
	}
}

// NewService creates the facade over local and resolves the initial mode.
// A failing local cache is logged and the service starts empty; a failing
// remote load is returned.
func NewService(ctx context.Context, local *LocalOnlyStore, opts ...Option) (*Service, error) {
	s := &Service{
		local:   local,
		current: local,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.New(notify.WithLogger(s.logger))
	}

	if err := local.Load(ctx); err != nil {
		s.logger.Warn("local preferences unavailable, starting empty", zap.Error(err))
	}

	if s.identity != nil {
		s.unsubscribe = s.identity.Subscribe(func(identity.Identity) {
			if err := s.Sync(context.Background()); err != nil {
				s.logger.Error("failed to switch preference mode", zap.Error(err))
			}
		})
	}
	if err := s.Sync(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close stops following identity transitions.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Sync brings the mode in line with the current identity. A sign-in
// builds a fresh store for the user and fully reloads it before it is
// swapped in; a sign-out drops the remote state and returns to the local
// store. Sync is a no-op when the mode already matches.
func (s *Service) Sync(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	var who identity.Identity
	if s.identity != nil {
		who = s.identity.Current()
	}
	current := s.Store()

	var next PreferenceStore
	switch {
	case who.SignedIn() && s.remote != nil:
		if rb, ok := current.(*RemoteBackedStore); ok && rb.UserID() == who.UserID {
			return nil
		}
		opts := append([]StoreOption{WithStoreLogger(s.logger)}, s.storeOps...)
		rb := NewRemoteBackedStore(s.remote, who.UserID, opts...)
		if err := rb.Load(ctx); err != nil {
			return err
		}
		next = rb
	default:
		if who.SignedIn() {
			s.logger.Warn("signed in without a remote store, staying local",
				zap.String("user", who.UserID))
		}
		if current == PreferenceStore(s.local) {
			return nil
		}
		next = s.local
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	s.logger.Info("preference mode changed",
		zap.String("mode", string(next.Mode())),
		zap.String("user", who.UserID))
	s.refreshGauge(ctx, next)
	s.notifier.Notify(notify.Event{Op: notify.OpMode, Mode: string(next.Mode())})
	return nil
}

// Store returns the active store.
func (s *Service) Store() PreferenceStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Mode returns the active mode.
func (s *Service) Mode() Mode {
	return s.Store().Mode()
}

// UserID returns the user the active store serves, or "" in Local mode.
func (s *Service) UserID() string {
	if rb, ok := s.Store().(*RemoteBackedStore); ok {
		return rb.UserID()
	}
	return ""
}

// Notifier returns the change notifier.
func (s *Service) Notifier() *notify.Notifier {
	return s.notifier
}

// Subscribe registers a change listener.
func (s *Service) Subscribe(listener notify.Listener) (unsubscribe func()) {
	return s.notifier.Subscribe(listener)
}

// RequireAction runs action in Remote mode and fallback in Local mode.
// Without a fallback, Local mode returns ErrSignInRequired.
func (s *Service) RequireAction(ctx context.Context, action, fallback func(ctx context.Context) error) error {
	if s.Mode() == ModeRemote {
		return action(ctx)
	}
	if fallback == nil {
		return ErrSignInRequired
	}
	return fallback(ctx)
}

// AddFavorite adds or replaces a favorite.
func (s *Service) AddFavorite(ctx context.Context, entry favorites.Entry) error {
	store := s.Store()
	if err := store.AddFavorite(ctx, entry); err != nil {
		return s.failed("add", err)
	}
	s.changed(ctx, store, notify.Event{Op: notify.OpAdd, ID: ident.Normalize(entry.ID), Favorited: true})
	return nil
}

// RemoveFavorite removes a favorite. Removing an absent id succeeds.
func (s *Service) RemoveFavorite(ctx context.Context, id any) error {
	store := s.Store()
	if err := store.RemoveFavorite(ctx, id); err != nil {
		return s.failed("remove", err)
	}
	s.changed(ctx, store, notify.Event{Op: notify.OpRemove, ID: ident.Normalize(id)})
	return nil
}

// ToggleFavorite flips membership and reports whether the entry is now
// favorited. Callers must not toggle the same id again while a call is
// pending.
func (s *Service) ToggleFavorite(ctx context.Context, entry favorites.Entry) (bool, error) {
	store := s.Store()
	favorited, err := store.ToggleFavorite(ctx, entry)
	if err != nil {
		return favorited, s.failed("toggle", err)
	}
	s.changed(ctx, store, notify.Event{Op: notify.OpToggle, ID: ident.Normalize(entry.ID), Favorited: favorited})
	return favorited, nil
}

// ImportFavorites imports an export document.
func (s *Service) ImportFavorites(ctx context.Context, data string, merge bool) (int, error) {
	store := s.Store()
	n, err := store.ImportFavorites(ctx, data, merge)
	if err != nil {
		return n, s.failed("import", err)
	}
	s.changed(ctx, store, notify.Event{Op: notify.OpImport})
	return n, nil
}

// ClearFavorites removes every favorite.
func (s *Service) ClearFavorites(ctx context.Context) error {
	store := s.Store()
	if err := store.ClearFavorites(ctx); err != nil {
		return s.failed("clear", err)
	}
	s.changed(ctx, store, notify.Event{Op: notify.OpClear})
	return nil
}

// IsFavorited reports whether id is a favorite.
func (s *Service) IsFavorited(ctx context.Context, id any) (bool, error) {
	return s.Store().IsFavorited(ctx, id)
}

// Favorites returns every favorite, newest first.
func (s *Service) Favorites(ctx context.Context) ([]favorites.Entry, error) {
	return s.Store().Favorites(ctx)
}

// SortedFavorites returns favorites ordered by the given criterion.
func (s *Service) SortedFavorites(ctx context.Context, by favorites.SortBy) ([]favorites.Entry, error) {
	return s.Store().SortedFavorites(ctx, by)
}

// SearchFavorites filters favorites by name or location.
func (s *Service) SearchFavorites(ctx context.Context, query string) ([]favorites.Entry, error) {
	return s.Store().SearchFavorites(ctx, query)
}

// FavoriteStats summarizes the favorites.
func (s *Service) FavoriteStats(ctx context.Context) (favorites.Stats, error) {
	return s.Store().FavoriteStats(ctx)
}

// ExportFavorites serializes the favorites.
func (s *Service) ExportFavorites(ctx context.Context) (string, error) {
	return s.Store().ExportFavorites(ctx)
}

// FavoriteCount returns the number of favorites.
func (s *Service) FavoriteCount(ctx context.Context) (int, error) {
	return s.Store().FavoriteCount(ctx)
}

// AddRecentSearch records a search. Recent-search changes never notify.
func (s *Service) AddRecentSearch(ctx context.Context, query, replaceHint string) error {
	return s.failed("add_search", s.Store().AddRecentSearch(ctx, query, replaceHint))
}

// RemoveRecentSearch removes a search.
func (s *Service) RemoveRecentSearch(ctx context.Context, query string) error {
	return s.failed("remove_search", s.Store().RemoveRecentSearch(ctx, query))
}

// ClearRecentSearches empties the recent list.
func (s *Service) ClearRecentSearches(ctx context.Context) error {
	return s.failed("clear_searches", s.Store().ClearRecentSearches(ctx))
}

// RecentSearches returns the recent list, most recent first.
func (s *Service) RecentSearches() []string {
	return s.Store().RecentSearches()
}

func (s *Service) changed(ctx context.Context, store PreferenceStore, event notify.Event) {
	mode := string(store.Mode())
	s.metrics.ObserveMutation(string(event.Op), mode)
	s.refreshGauge(ctx, store)
	event.Mode = mode
	s.notifier.Notify(event)
}

func (s *Service) failed(op string, err error) error {
	if err == nil {
		return nil
	}
	var rwe *RemoteWriteError
	if errors.As(err, &rwe) {
		s.metrics.ObserveRemoteFailure(op)
	}
	return err
}

func (s *Service) refreshGauge(ctx context.Context, store PreferenceStore) {
	if s.metrics == nil {
		return
	}
	n, err := store.FavoriteCount(ctx)
	if err != nil {
		return
	}
	s.metrics.SetFavorites(string(store.Mode()), n)
}
