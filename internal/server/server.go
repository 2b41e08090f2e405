// Package server exposes the preference service over HTTP and streams
// change events to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/metrics"
	"github.com/artpar/staykeep/internal/notify"
	"github.com/artpar/staykeep/internal/prefs"
)

// Server serves the preference API.
type Server struct {
	service *prefs.Service
	metrics *metrics.Metrics
	logger  *zap.Logger
	hub     *hub
	addr    string

	mu          sync.RWMutex
	httpServer  *http.Server
	listener    net.Listener
	running     bool
	unsubscribe func()
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server for service listening on addr.
func New(service *prefs.Service, addr string, opts ...Option) *Server {
	s := &Server{
		service: service,
		addr:    addr,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s.logger)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/favorites", s.handleFavorites)
	mux.HandleFunc("GET /api/favorites/stats", s.handleStats)
	mux.HandleFunc("GET /api/recent", s.handleRecent)
	mux.HandleFunc("GET /ws", s.handleWS)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// Start listens and serves in the background until ctx is done or Stop
// is called. Change events are forwarded to websocket clients while the
// server runs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.unsubscribe = s.service.Subscribe(s.hub.broadcast)
	s.running = true
	s.mu.Unlock()

	s.logger.Info("server listening", zap.String("addr", listener.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop shuts the server down and disconnects websocket clients.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.unsubscribe()
	s.hub.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return s.httpServer.Close()
	}
	return nil
}

// ListenAddr returns the bound address, useful with port 0.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Broadcast pushes event to websocket clients. Start subscribes it to the
// service; it is exported for servers mounted through Handler alone.
func (s *Server) Broadcast(event notify.Event) {
	s.hub.broadcast(event)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"mode":   s.service.Mode(),
	})
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		list []favorites.Entry
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		list, err = s.service.SearchFavorites(ctx, q)
	} else {
		by, perr := favorites.ParseSortBy(r.URL.Query().Get("sort"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr)
			return
		}
		list, err = s.service.SortedFavorites(ctx, by)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []favorites.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":      s.service.Mode(),
		"favorites": list,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.FavoriteStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":   s.service.Mode(),
		"recent": s.service.RecentSearches(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
