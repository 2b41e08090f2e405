// Package memory provides an in-process storage.Engine. It backs the
// Remote-mode in-memory preference state and is handy in tests.
package memory

import (
	"context"
	"sync"

	"github.com/artpar/staykeep/internal/storage"
)

// Store implements storage.Engine with a map.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

var _ storage.Engine = (*Store)(nil)

// New creates an empty in-memory engine.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", false, storage.ErrStoreClosed
	}
	if err := storage.ValidateKey(key); err != nil {
		return "", false, err
	}

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	s.values[key] = value
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	delete(s.values, key)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
