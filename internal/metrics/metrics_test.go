package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveMutation("add", "local")
	m.ObserveMutation("add", "local")
	m.ObserveRemoteFailure("remove")
	m.SetFavorites("remote", 3)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Mutations.WithLabelValues("add", "local")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RemoteFailures.WithLabelValues("remove")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Favorites.WithLabelValues("remote")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveMutation("add", "local")
		m.ObserveRemoteFailure("add")
		m.SetFavorites("local", 1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveMutation("toggle", "local")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `staykeep_mutations_total{mode="local",op="toggle"} 1`)
}
