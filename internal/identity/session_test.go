package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	t.Run("creates a device id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.yaml")

		s, err := NewSession(path)
		require.NoError(t, err)

		cur := s.Current()
		assert.False(t, cur.SignedIn())
		assert.NotEmpty(t, cur.DeviceID)
		assert.FileExists(t, path)
	})

	t.Run("restores a previous session", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.yaml")

		s, err := NewSession(path)
		require.NoError(t, err)
		require.NoError(t, s.SignIn("user-1"))

		reopened, err := NewSession(path)
		require.NoError(t, err)
		assert.Equal(t, "user-1", reopened.Current().UserID)
		assert.Equal(t, s.Current().DeviceID, reopened.Current().DeviceID)
	})

	t.Run("rejects a corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.yaml")
		require.NoError(t, os.WriteFile(path, []byte("user_id: [unterminated"), 0600))

		_, err := NewSession(path)
		assert.Error(t, err)
	})
}

func TestSession_Transitions(t *testing.T) {
	s := NewInMemorySession()

	var seen []Identity
	unsubscribe := s.Subscribe(func(id Identity) {
		seen = append(seen, id)
	})
	defer unsubscribe()

	require.NoError(t, s.SignIn(" user-1 "))
	require.NoError(t, s.SignIn("user-1"))
	require.NoError(t, s.SignOut())
	require.NoError(t, s.SignOut())

	require.Len(t, seen, 2)
	assert.Equal(t, "user-1", seen[0].UserID)
	assert.False(t, seen[0].SignedInAt.IsZero())
	assert.False(t, seen[1].SignedIn())
	assert.Equal(t, seen[0].DeviceID, seen[1].DeviceID)
}

func TestSession_SignInRequiresUser(t *testing.T) {
	s := NewInMemorySession()
	assert.ErrorIs(t, s.SignIn("  "), ErrEmptyUserID)
}

func TestSession_Unsubscribe(t *testing.T) {
	s := NewInMemorySession()

	calls := 0
	unsubscribe := s.Subscribe(func(Identity) { calls++ })
	unsubscribe()
	unsubscribe()

	require.NoError(t, s.SignIn("user-1"))
	assert.Equal(t, 0, calls)
}
