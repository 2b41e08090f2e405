package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEngineTests runs the standard engine test suite against any Engine
// implementation.
func RunEngineTests(t *testing.T, newEngine func() (Engine, func())) {
	t.Run("Get", func(t *testing.T) {
		runGetTests(t, newEngine)
	})
	t.Run("Set", func(t *testing.T) {
		runSetTests(t, newEngine)
	})
	t.Run("Remove", func(t *testing.T) {
		runRemoveTests(t, newEngine)
	})
	t.Run("Close", func(t *testing.T) {
		runCloseTests(t, newEngine)
	})
}

func runGetTests(t *testing.T, newEngine func() (Engine, func())) {
	t.Run("reports missing key", func(t *testing.T) {
		engine, cleanup := newEngine()
		defer cleanup()

		value, found, err := engine.Get(context.Background(), "missing")

		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, value)
	})

	t.Run("returns stored value", func(t *testing.T) {
		engine, cleanup := newEngine()
		defer cleanup()

		require.NoError(t, engine.Set(context.Background(), "hotel_favorites", `[{"id":"1"}]`))

		value, found, err := engine.Get(context.Background(), "hotel_favorites")

		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `[{"id":"1"}]`, value)
	})

	t.Run("rejects invalid key", func(t *testing.T) {
		engine, cleanup := newEngine()
		defer cleanup()

		_, _, err := engine.Get(context.Background(), "../etc/passwd")

		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func runSetTests(t *testing.T, newEngine func() (Engine, func())) {
	t.Run("overwrites existing value", func(t *testing.T) {
		engine, cleanup := newEngine()
		defer cleanup()

		ctx := context.Background()
		require.NoError(t, engine.Set(ctx, "recent_searches", `["Paris"]`))
		require.NoError(t, engine.Set(ctx, "recent_searches", `["Rome"]`))

		value, found, err := engine.Get(ctx, "recent_searches")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `["Rome"]`, value)
	})

	t.Run("keeps keys independent", func(t *testing.T) {
		engine, cleanup := newEngine()
		defer cleanup()

		ctx := context.Background()
		require.NoError(t, engine.Set(ctx, "a", "1"))
		require.NoError(t, engine.Set(ctx, "b", "2"))

		a, _, err := engine.Get(ctx, "a")
		require.NoError(t, err)
		b, _, err := engine.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "1", a)
		assert.Equal(t, "2", b)
	})

	t.Run("stores empty value", func(t *testing.T) {
		engine, cleanup := newEngine()
		defer cleanup()

		ctx := context.Background()
		require.NoError(t, engine.Set(ctx, "empty", ""))

		value, found, err := engine.Get(ctx, "empty")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, value)
	})
}

func runRemoveTests(t *testing.T, newEngine func() (Engine, func())) {
	t.Run("removes existing key", func(t *testing.T) {
		engine, cleanup := newEngine()
		defer cleanup()

		ctx := context.Background()
		require.NoError(t, engine.Set(ctx, "hotel_favorites", "[]"))
		require.NoError(t, engine.Remove(ctx, "hotel_favorites"))

		_, found, err := engine.Get(ctx, "hotel_favorites")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("removing missing key is not an error", func(t *testing.T) {
		engine, cleanup := newEngine()
		defer cleanup()

		assert.NoError(t, engine.Remove(context.Background(), "never-set"))
	})
}

func runCloseTests(t *testing.T, newEngine func() (Engine, func())) {
	t.Run("operations fail after close", func(t *testing.T) {
		engine, cleanup := newEngine()
		defer cleanup()

		require.NoError(t, engine.Close())

		_, _, err := engine.Get(context.Background(), "a")
		assert.ErrorIs(t, err, ErrStoreClosed)
		assert.ErrorIs(t, engine.Set(context.Background(), "a", "1"), ErrStoreClosed)
		assert.ErrorIs(t, engine.Remove(context.Background(), "a"), ErrStoreClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		engine, cleanup := newEngine()
		defer cleanup()

		require.NoError(t, engine.Close())
		assert.NoError(t, engine.Close())
	})
}
