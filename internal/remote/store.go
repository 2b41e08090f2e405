// Package remote defines the authoritative per-identity preference store
// used in Remote mode.
package remote

import (
	"context"
	"errors"

	"github.com/artpar/staykeep/internal/favorites"
)

// Names of the membership lists kept per user.
const (
	ListFavoriteIDs    = "favorite_ids"
	ListRecentSearches = "recent_searches"
)

// Common errors.
var (
	ErrNotFound     = errors.New("remote document not found")
	ErrStoreClosed  = errors.New("remote store is closed")
	ErrInvalidUser  = errors.New("remote user id is empty")
	ErrInvalidField = errors.New("field cannot be updated")
)

// Store is the remote document store. Favorites are documents keyed by
// (user, favorite id); lists are small ordered string sets per user.
type Store interface {
	// AddFavorite writes a favorite document, replacing an existing one
	// with the same favorite id, and returns its document id.
	AddFavorite(ctx context.Context, userID string, entry favorites.Entry) (string, error)

	// UpdateFavorite applies a partial update. Updatable fields are
	// "name", "location" and "extra".
	UpdateFavorite(ctx context.Context, userID, favoriteID string, fields map[string]any) error

	// DeleteFavorite removes a favorite document. Deleting an absent
	// document is not an error.
	DeleteFavorite(ctx context.Context, userID, favoriteID string) error

	// ReadFavorites returns every favorite of the user, oldest first.
	ReadFavorites(ctx context.Context, userID string) ([]favorites.Entry, error)

	// ArrayUnion appends values missing from the list.
	ArrayUnion(ctx context.Context, userID, list string, values ...string) error

	// ArrayRemove removes values from the list.
	ArrayRemove(ctx context.Context, userID, list string, values ...string) error

	// ReadList returns the list in stored order.
	ReadList(ctx context.Context, userID, list string) ([]string, error)

	// ReplaceList overwrites the list.
	ReplaceList(ctx context.Context, userID, list string, values []string) error

	// Close releases the store.
	Close() error
}
