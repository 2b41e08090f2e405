package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/metrics"
	"github.com/artpar/staykeep/internal/notify"
	"github.com/artpar/staykeep/internal/prefs"
	"github.com/artpar/staykeep/internal/storage/memory"
)

func newTestService(t *testing.T) *prefs.Service {
	t.Helper()
	svc, err := prefs.NewService(context.Background(), prefs.NewLocalOnlyStore(memory.New()))
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out))
	}
	return resp.StatusCode
}

func TestServer_Routes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	require.NoError(t, svc.AddFavorite(ctx, favorites.NewEntry(1, "bravo", "Paris")))
	require.NoError(t, svc.AddFavorite(ctx, favorites.NewEntry(2, "Alpha", "Rome")))
	require.NoError(t, svc.AddRecentSearch(ctx, "Rome", ""))

	m := metrics.New()
	ts := httptest.NewServer(New(svc, "", WithMetrics(m)).Handler())
	defer ts.Close()

	t.Run("healthz", func(t *testing.T) {
		var body map[string]string
		assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "local", body["mode"])
	})

	t.Run("favorites sorted by name", func(t *testing.T) {
		var body struct {
			Favorites []favorites.Entry `json:"favorites"`
		}
		assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/favorites?sort=name", &body))
		require.Len(t, body.Favorites, 2)
		assert.Equal(t, "Alpha", body.Favorites[0].Name)
	})

	t.Run("favorites search", func(t *testing.T) {
		var body struct {
			Favorites []favorites.Entry `json:"favorites"`
		}
		assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/favorites?q=paris", &body))
		require.Len(t, body.Favorites, 1)
		assert.Equal(t, "1", body.Favorites[0].ID)
	})

	t.Run("invalid sort", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/favorites?sort=price", nil))
	})

	t.Run("stats", func(t *testing.T) {
		var stats favorites.Stats
		assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/favorites/stats", &stats))
		assert.Equal(t, 2, stats.TotalFavorites)
	})

	t.Run("recent", func(t *testing.T) {
		var body struct {
			Recent []string `json:"recent"`
		}
		assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/recent", &body))
		assert.Equal(t, []string{"Rome"}, body.Recent)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "staykeep_listener_panics_total")
	})
}

func TestServer_StreamsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := newTestService(t)
	srv := New(svc, "127.0.0.1:0")
	require.NoError(t, srv.Start(ctx))
	defer srv.Stop()

	url := "ws://" + srv.ListenAddr() + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return srv.hub.count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, svc.AddFavorite(ctx, favorites.NewEntry(42, "Harbor Inn", "")))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)

	var event notify.Event
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, notify.OpAdd, event.Op)
	assert.Equal(t, "42", event.ID)
	assert.Equal(t, "local", event.Mode)
}

func TestServer_StopDisconnectsClients(t *testing.T) {
	svc := newTestService(t)
	srv := New(svc, "127.0.0.1:0")
	require.NoError(t, srv.Start(context.Background()))

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+srv.ListenAddr()+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return srv.hub.count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Stop())
	require.NoError(t, srv.Stop())

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ws.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, svc.Notifier().Len())
}

func TestServer_StartTwice(t *testing.T) {
	srv := New(newTestService(t), "127.0.0.1:0")
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Stop()

	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "already running"))
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := newHub(zap.NewNop())
	c := &client{send: make(chan []byte, 1), done: make(chan struct{})}
	h.add(c)

	h.broadcast(notify.Event{Op: notify.OpAdd})
	h.broadcast(notify.Event{Op: notify.OpRemove})

	assert.Equal(t, 0, h.count())
	select {
	case <-c.done:
	default:
		t.Fatal("slow client was not closed")
	}
}
