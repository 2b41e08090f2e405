// Package memory provides an in-process remote.Store with failure
// injection for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/remote"
)

type document struct {
	docID string
	seq   uint64
	entry favorites.Entry
}

type userData struct {
	favorites map[string]document
	lists     map[string][]string
}

// Store is an in-memory implementation of remote.Store.
type Store struct {
	mu      sync.Mutex
	users   map[string]*userData
	nextSeq uint64
	closed  bool

	failWrites error
	failReads  error
	writes     int
}

var _ remote.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{users: make(map[string]*userData)}
}

// FailWrites makes every subsequent write return err. A nil err restores
// normal behavior.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

// FailReads makes every subsequent read return err.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = err
}

// Writes returns the number of write calls accepted so far.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) user(userID string) *userData {
	u, ok := s.users[userID]
	if !ok {
		u = &userData{
			favorites: make(map[string]document),
			lists:     make(map[string][]string),
		}
		s.users[userID] = u
	}
	return u
}

func (s *Store) beginWrite(userID string) error {
	if s.closed {
		return remote.ErrStoreClosed
	}
	if userID == "" {
		return remote.ErrInvalidUser
	}
	if s.failWrites != nil {
		return s.failWrites
	}
	s.writes++
	return nil
}

func (s *Store) beginRead(userID string) error {
	if s.closed {
		return remote.ErrStoreClosed
	}
	if userID == "" {
		return remote.ErrInvalidUser
	}
	return s.failReads
}

// AddFavorite implements remote.Store.
func (s *Store) AddFavorite(ctx context.Context, userID string, entry favorites.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginWrite(userID); err != nil {
		return "", err
	}

	u := s.user(userID)
	doc, ok := u.favorites[entry.ID]
	if !ok {
		s.nextSeq++
		doc = document{docID: uuid.NewString(), seq: s.nextSeq}
	}
	doc.entry = copyEntry(entry)
	u.favorites[entry.ID] = doc
	return doc.docID, nil
}

// UpdateFavorite implements remote.Store.
func (s *Store) UpdateFavorite(ctx context.Context, userID, favoriteID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginWrite(userID); err != nil {
		return err
	}

	u := s.user(userID)
	doc, ok := u.favorites[favoriteID]
	if !ok {
		return remote.ErrNotFound
	}
	for field, value := range fields {
		switch field {
		case "name", "location":
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: %s must be a string", remote.ErrInvalidField, field)
			}
			if field == "name" {
				doc.entry.Name = str
			} else {
				doc.entry.Location = str
			}
		case "extra":
			extra, ok := value.(map[string]any)
			if !ok && value != nil {
				return fmt.Errorf("%w: extra must be an object", remote.ErrInvalidField)
			}
			doc.entry.Extra = extra
		default:
			return fmt.Errorf("%w: %s", remote.ErrInvalidField, field)
		}
	}
	u.favorites[favoriteID] = doc
	return nil
}

// DeleteFavorite implements remote.Store.
func (s *Store) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginWrite(userID); err != nil {
		return err
	}
	delete(s.user(userID).favorites, favoriteID)
	return nil
}

// ReadFavorites implements remote.Store.
func (s *Store) ReadFavorites(ctx context.Context, userID string) ([]favorites.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginRead(userID); err != nil {
		return nil, err
	}

	u, ok := s.users[userID]
	if !ok {
		return []favorites.Entry{}, nil
	}
	docs := make([]document, 0, len(u.favorites))
	for _, doc := range u.favorites {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if !a.entry.AddedAt.Equal(b.entry.AddedAt) {
			return a.entry.AddedAt.Before(b.entry.AddedAt)
		}
		return a.seq < b.seq
	})

	out := make([]favorites.Entry, len(docs))
	for i, doc := range docs {
		out[i] = copyEntry(doc.entry)
	}
	return out, nil
}

// ArrayUnion implements remote.Store.
func (s *Store) ArrayUnion(ctx context.Context, userID, list string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginWrite(userID); err != nil {
		return err
	}

	u := s.user(userID)
	current := u.lists[list]
	for _, v := range values {
		if !contains(current, v) {
			current = append(current, v)
		}
	}
	u.lists[list] = current
	return nil
}

// ArrayRemove implements remote.Store.
func (s *Store) ArrayRemove(ctx context.Context, userID, list string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginWrite(userID); err != nil {
		return err
	}

	u := s.user(userID)
	kept := u.lists[list][:0:0]
	for _, v := range u.lists[list] {
		if !contains(values, v) {
			kept = append(kept, v)
		}
	}
	u.lists[list] = kept
	return nil
}

// ReadList implements remote.Store.
func (s *Store) ReadList(ctx context.Context, userID, list string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginRead(userID); err != nil {
		return nil, err
	}

	u, ok := s.users[userID]
	if !ok {
		return []string{}, nil
	}
	out := make([]string, len(u.lists[list]))
	copy(out, u.lists[list])
	return out, nil
}

// ReplaceList implements remote.Store.
func (s *Store) ReplaceList(ctx context.Context, userID, list string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginWrite(userID); err != nil {
		return err
	}

	out := make([]string, len(values))
	copy(out, values)
	s.user(userID).lists[list] = out
	return nil
}

// Close implements remote.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func copyEntry(e favorites.Entry) favorites.Entry {
	if e.Extra != nil {
		extra := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			extra[k] = v
		}
		e.Extra = extra
	}
	return e
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
