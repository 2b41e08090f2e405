// Package metrics exposes Prometheus instruments for the preference core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "staykeep"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	Mutations      *prometheus.CounterVec
	RemoteFailures *prometheus.CounterVec
	ListenerPanics prometheus.Counter
	Favorites      *prometheus.GaugeVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Successful preference mutations by operation and mode.",
		}, []string{"op", "mode"}),
		RemoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_write_failures_total",
			Help:      "Remote store writes that failed, by operation.",
		}, []string{"op"}),
		ListenerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_panics_total",
			Help:      "Change listeners that panicked during delivery.",
		}),
		Favorites: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "favorites",
			Help:      "Favorites held by the active preference store.",
		}, []string{"mode"}),
	}

	m.registry.MustRegister(m.Mutations, m.RemoteFailures, m.ListenerPanics, m.Favorites)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMutation counts a successful mutation. Safe on a nil receiver.
func (m *Metrics) ObserveMutation(op, mode string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op, mode).Inc()
}

// ObserveRemoteFailure counts a failed remote write. Safe on a nil receiver.
func (m *Metrics) ObserveRemoteFailure(op string) {
	if m == nil {
		return
	}
	m.RemoteFailures.WithLabelValues(op).Inc()
}

// SetFavorites records the current favorites count. Safe on a nil receiver.
func (m *Metrics) SetFavorites(mode string, n int) {
	if m == nil {
		return
	}
	m.Favorites.Reset()
	m.Favorites.WithLabelValues(mode).Set(float64(n))
}
