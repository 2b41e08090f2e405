package prefs

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/ident"
	"github.com/artpar/staykeep/internal/recent"
	"github.com/artpar/staykeep/internal/remote"
	"github.com/artpar/staykeep/internal/storage/memory"
)

// RemoteBackedStore serves one signed-in user. Mutations update the
// in-memory state first and then write through to the remote store; a
// failed remote write is returned as a *RemoteWriteError and the
// in-memory update stays.
//
// Toggle is check-then-act across the remote write. Callers must not
// issue a second toggle for the same id while one is pending.
type RemoteBackedStore struct {
	views
	userID string
	remote remote.Store
	logger *zap.Logger
}

var _ PreferenceStore = (*RemoteBackedStore)(nil)

// NewRemoteBackedStore creates an empty store for userID. Call Load
// before use.
func NewRemoteBackedStore(store remote.Store, userID string, opts ...StoreOption) *RemoteBackedStore {
	o := applyStoreOptions(opts)
	logger := o.logger.With(zap.String("user", userID))
	return &RemoteBackedStore{
		views: views{
			favs: favorites.NewCollection(memory.New(),
				favorites.WithLogger(logger),
				favorites.WithClock(o.now),
			),
			searches: recent.New(recent.WithLogger(logger)),
		},
		userID: userID,
		remote: store,
		logger: logger,
	}
}

// Mode implements PreferenceStore.
func (s *RemoteBackedStore) Mode() Mode { return ModeRemote }

// UserID returns the user the store serves.
func (s *RemoteBackedStore) UserID() string {
	return s.userID
}

// Load replaces the in-memory state with the remote copy. Favorites and
// recent searches are read concurrently.
func (s *RemoteBackedStore) Load(ctx context.Context) error {
	var (
		list     []favorites.Entry
		searches []string
		members  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.remote.ReadFavorites(gctx, s.userID)
		return err
	})
	g.Go(func() error {
		var err error
		searches, err = s.remote.ReadList(gctx, s.userID, remote.ListRecentSearches)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = s.remote.ReadList(gctx, s.userID, remote.ListFavoriteIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load remote preferences: %w", err)
	}

	if err := s.favs.Replace(ctx, list); err != nil {
		return err
	}
	if err := s.searches.Replace(ctx, searches); err != nil {
		return err
	}

	if dangling := danglingIDs(list, members); len(dangling) > 0 {
		s.logger.Warn("favorite ids without documents",
			zap.Strings("ids", dangling))
	}
	s.logger.Debug("remote preferences loaded",
		zap.Int("favorites", len(list)),
		zap.Int("recent", len(searches)))
	return nil
}

// AddFavorite implements PreferenceStore.
func (s *RemoteBackedStore) AddFavorite(ctx context.Context, entry favorites.Entry) error {
	entry.ID = ident.Normalize(entry.ID)
	if err := s.favs.Add(ctx, entry); err != nil {
		return err
	}
	return s.pushFavorite(ctx, "add", entry.ID)
}

// RemoveFavorite implements PreferenceStore.
func (s *RemoteBackedStore) RemoveFavorite(ctx context.Context, id any) error {
	key := ident.Normalize(id)
	if err := s.favs.Remove(ctx, key); err != nil {
		return err
	}
	return s.dropFavorite(ctx, "remove", key)
}

// ToggleFavorite implements PreferenceStore.
func (s *RemoteBackedStore) ToggleFavorite(ctx context.Context, entry favorites.Entry) (bool, error) {
	entry.ID = ident.Normalize(entry.ID)
	favorited, err := s.favs.Toggle(ctx, entry)
	if err != nil {
		return false, err
	}
	if favorited {
		return true, s.pushFavorite(ctx, "toggle", entry.ID)
	}
	return false, s.dropFavorite(ctx, "toggle", entry.ID)
}

// ImportFavorites implements PreferenceStore. Each imported entry is
// written separately; the first remote failure stops the push.
func (s *RemoteBackedStore) ImportFavorites(ctx context.Context, data string, merge bool) (int, error) {
	doc, err := favorites.ParseExport(data)
	if err != nil {
		return 0, err
	}
	before, err := s.favs.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	n, err := s.favs.Import(ctx, data, merge)
	if err != nil {
		return 0, err
	}

	if !merge {
		imported := make(map[string]bool, len(doc.Favorites))
		for _, e := range doc.Favorites {
			imported[e.ID] = true
		}
		for _, e := range before {
			if imported[e.ID] {
				continue
			}
			if err := s.dropFavorite(ctx, "import", e.ID); err != nil {
				return n, err
			}
		}
	}
	for _, e := range doc.Favorites {
		if e.ID == "" {
			continue
		}
		if err := s.pushFavorite(ctx, "import", e.ID); err != nil {
			return n, err
		}
	}
	return n, nil
}

// ClearFavorites implements PreferenceStore.
func (s *RemoteBackedStore) ClearFavorites(ctx context.Context) error {
	before, err := s.favs.GetAll(ctx)
	if err != nil {
		return err
	}
	if err := s.favs.Clear(ctx); err != nil {
		return err
	}

	for _, e := range before {
		if err := s.remote.DeleteFavorite(ctx, s.userID, e.ID); err != nil {
			return s.remoteError("clear", e.ID, err)
		}
	}
	if err := s.remote.ReplaceList(ctx, s.userID, remote.ListFavoriteIDs, nil); err != nil {
		return s.remoteError("clear", "", err)
	}
	return nil
}

// AddRecentSearch implements PreferenceStore.
func (s *RemoteBackedStore) AddRecentSearch(ctx context.Context, query, replaceHint string) error {
	if _, err := recent.Validate(query); err != nil {
		s.logger.Debug("ignoring recent search", zap.Error(err))
		return nil
	}
	if err := s.searches.Add(ctx, query, replaceHint); err != nil {
		return err
	}
	return s.pushSearches(ctx, "add_search")
}

// RemoveRecentSearch implements PreferenceStore.
func (s *RemoteBackedStore) RemoveRecentSearch(ctx context.Context, query string) error {
	if err := s.searches.Remove(ctx, query); err != nil {
		return err
	}
	return s.pushSearches(ctx, "remove_search")
}

// ClearRecentSearches implements PreferenceStore.
func (s *RemoteBackedStore) ClearRecentSearches(ctx context.Context) error {
	if err := s.searches.Clear(ctx); err != nil {
		return err
	}
	return s.pushSearches(ctx, "clear_searches")
}

// pushFavorite writes the in-memory entry for id and records membership.
func (s *RemoteBackedStore) pushFavorite(ctx context.Context, op, id string) error {
	entry, err := s.favs.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.remote.AddFavorite(ctx, s.userID, entry); err != nil {
		return s.remoteError(op, id, err)
	}
	if err := s.remote.ArrayUnion(ctx, s.userID, remote.ListFavoriteIDs, id); err != nil {
		return s.remoteError(op, id, err)
	}
	return nil
}

func (s *RemoteBackedStore) dropFavorite(ctx context.Context, op, id string) error {
	if err := s.remote.DeleteFavorite(ctx, s.userID, id); err != nil {
		return s.remoteError(op, id, err)
	}
	if err := s.remote.ArrayRemove(ctx, s.userID, remote.ListFavoriteIDs, id); err != nil {
		return s.remoteError(op, id, err)
	}
	return nil
}

func (s *RemoteBackedStore) pushSearches(ctx context.Context, op string) error {
	if err := s.remote.ReplaceList(ctx, s.userID, remote.ListRecentSearches, s.searches.Get()); err != nil {
		return s.remoteError(op, "", err)
	}
	return nil
}

func (s *RemoteBackedStore) remoteError(op, id string, err error) error {
	s.logger.Error("remote write failed",
		zap.String("op", op),
		zap.String("id", id),
		zap.Error(err))
	return &RemoteWriteError{Op: op, ID: id, Err: err}
}

func danglingIDs(list []favorites.Entry, members []string) []string {
	present := make(map[string]bool, len(list))
	for _, e := range list {
		present[e.ID] = true
	}
	var out []string
	for _, id := range members {
		if !present[id] {
			out = append(out, id)
		}
	}
	return out
}
