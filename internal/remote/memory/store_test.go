package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/remote"
)

func TestStore(t *testing.T) {
	remote.RunStoreTests(t, func() (remote.Store, func()) {
		s := New()
		return s, func() { s.Close() }
	})
}

func TestStore_FailureInjection(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("network down")

	s.FailWrites(boom)
	_, err := s.AddFavorite(ctx, "user-1", favorites.NewEntry(1, "Hotel", ""))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Writes())

	s.FailWrites(nil)
	_, err = s.AddFavorite(ctx, "user-1", favorites.NewEntry(1, "Hotel", ""))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Writes())

	s.FailReads(boom)
	_, err = s.ReadFavorites(ctx, "user-1")
	assert.ErrorIs(t, err, boom)
}

func TestStore_Closed(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())

	_, err := s.ReadList(context.Background(), "user-1", remote.ListFavoriteIDs)
	assert.ErrorIs(t, err, remote.ErrStoreClosed)
}
