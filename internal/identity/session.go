// Package identity tracks the signed-in user. Authentication itself
// happens elsewhere; this package only records the outcome and announces
// transitions.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrEmptyUserID is returned when signing in without a user id.
var ErrEmptyUserID = errors.New("user id is required")

// Identity describes the current user.
type Identity struct {
	UserID     string
	DeviceID   string
	SignedInAt time.Time
}

// SignedIn reports whether the identity carries a user.
func (i Identity) SignedIn() bool {
	return i.UserID != ""
}

// Listener receives the identity after every transition. A signed-out
// identity has an empty UserID.
type Listener func(Identity)

// Provider is the read side of a session.
type Provider interface {
	Current() Identity
	Subscribe(listener Listener) (unsubscribe func())
}

type sessionFile struct {
	UserID     string    `yaml:"user_id,omitempty"`
	DeviceID   string    `yaml:"device_id"`
	SignedInAt time.Time `yaml:"signed_in_at,omitempty"`
}

type subscription struct {
	id       uint64
	listener Listener
}

// Session is a file-backed identity. An empty path keeps it in memory.
type Session struct {
	path string

	mu      sync.Mutex
	current Identity
	subs    []subscription
	nextID  uint64
}

var _ Provider = (*Session)(nil)

// NewSession loads the session at path, creating it with a fresh device
// id when absent.
func NewSession(path string) (*Session, error) {
	s := &Session{path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f sessionFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse session file: %w", err)
		}
		s.current = Identity{UserID: f.UserID, DeviceID: f.DeviceID, SignedInAt: f.SignedInAt}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if s.current.DeviceID == "" {
		s.current.DeviceID = uuid.NewString()
		if err := s.save(s.current); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewInMemorySession creates a session that is never written to disk.
func NewInMemorySession() *Session {
	return &Session{current: Identity{DeviceID: uuid.NewString()}}
}

// Current returns the current identity.
func (s *Session) Current() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SignIn records userID as the signed-in user and notifies listeners.
// Signing in as the current user is a no-op.
func (s *Session) SignIn(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrEmptyUserID
	}
	return s.transition(func(cur Identity) (Identity, bool) {
		if cur.UserID == userID {
			return cur, false
		}
		cur.UserID = userID
		cur.SignedInAt = time.Now().UTC()
		return cur, true
	})
}

// SignOut clears the signed-in user and notifies listeners.
func (s *Session) SignOut() error {
	return s.transition(func(cur Identity) (Identity, bool) {
		if !cur.SignedIn() {
			return cur, false
		}
		cur.UserID = ""
		cur.SignedInAt = time.Time{}
		return cur, true
	})
}

// Subscribe registers a listener for identity transitions.
func (s *Session) Subscribe(listener Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	subs := make([]subscription, len(s.subs), len(s.subs)+1)
	copy(subs, s.subs)
	s.subs = append(subs, subscription{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			subs := make([]subscription, 0, len(s.subs))
			for _, sub := range s.subs {
				if sub.id != id {
					subs = append(subs, sub)
				}
			}
			s.subs = subs
		})
	}
}

func (s *Session) transition(fn func(Identity) (Identity, bool)) error {
	s.mu.Lock()
	next, changed := fn(s.current)
	if !changed {
		s.mu.Unlock()
		return nil
	}
	if err := s.save(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = next
	subs := s.subs
	s.mu.Unlock()

	for _, sub := range subs {
		sub.listener(next)
	}
	return nil
}

func (s *Session) save(id Identity) error {
	if s.path == "" {
		return nil
	}

	content, err := yaml.Marshal(sessionFile{
		UserID:     id.UserID,
		DeviceID:   id.DeviceID,
		SignedInAt: id.SignedInAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, content, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
