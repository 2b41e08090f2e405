// Package sqlstore implements remote.Store on a SQL database. Postgres
// (through pgx) is the production target; SQLite serves local development
// and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"

	"github.com/artpar/staykeep/internal/favorites"
	"github.com/artpar/staykeep/internal/remote"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS remote_favorites (
		doc_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		favorite_id TEXT NOT NULL,
		name TEXT NOT NULL,
		location TEXT NOT NULL,
		added_at BIGINT NOT NULL,
		extra TEXT,
		updated_at BIGINT NOT NULL,
		seq BIGINT NOT NULL,
		UNIQUE (user_id, favorite_id)
	)`,
	`CREATE TABLE IF NOT EXISTS remote_lists (
		user_id TEXT NOT NULL,
		list_name TEXT NOT NULL,
		value TEXT NOT NULL,
		position BIGINT NOT NULL,
		PRIMARY KEY (user_id, list_name, value)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_remote_favorites_user ON remote_favorites(user_id, added_at)`,
}

// Store implements remote.Store on database/sql.
type Store struct {
	mu       sync.RWMutex
	db       *sql.DB
	postgres bool
	ownsDB   bool
	closed   bool
}

var _ remote.Store = (*Store)(nil)

// Open connects to the database and creates the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported remote driver %q", driver)
	}

	openMu.Lock()
	db, err := sqlOpen(driver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to open remote database: %w", err)
	}
	if driver == DriverSQLite && strings.HasPrefix(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach remote database: %w", err)
	}

	store := &Store{db: db, postgres: driver == DriverPostgres, ownsDB: true}
	if err := store.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB creates a store on an existing connection. The caller keeps
// ownership of db.
func NewWithDB(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	store := &Store{db: db, postgres: driver == DriverPostgres}
	if err := store.initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// NewInMemory creates a store on an in-memory SQLite database.
func NewInMemory() (*Store, error) {
	return Open(context.Background(), DriverSQLite, ":memory:")
}

// OverrideSQLOpen swaps the sql.Open function for tests and returns a
// restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

func (s *Store) initialize(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create remote schema: %w", err)
		}
	}
	return nil
}

// q rewrites ? placeholders to $N for Postgres.
func (s *Store) q(query string) string {
	if !s.postgres {
		return query
	}
	return rebind(query)
}

func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) check(userID string) error {
	if s.closed {
		return remote.ErrStoreClosed
	}
	if userID == "" {
		return remote.ErrInvalidUser
	}
	return nil
}

// AddFavorite implements remote.Store.
func (s *Store) AddFavorite(ctx context.Context, userID string, entry favorites.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(userID); err != nil {
		return "", err
	}

	extra, err := encodeExtra(entry.Extra)
	if err != nil {
		return "", err
	}

	var docID string
	err = s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO remote_favorites (doc_id, user_id, favorite_id, name, location, added_at, extra, updated_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM remote_favorites WHERE user_id = ?))
		ON CONFLICT (user_id, favorite_id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			added_at = excluded.added_at,
			extra = excluded.extra,
			updated_at = excluded.updated_at
		RETURNING doc_id`),
		uuid.NewString(), userID, entry.ID, entry.Name, entry.Location,
		entry.AddedAt.UnixMilli(), extra, time.Now().UnixMilli(), userID,
	).Scan(&docID)
	if err != nil {
		return "", fmt.Errorf("failed to write favorite %q: %w", entry.ID, err)
	}
	return docID, nil
}

// UpdateFavorite implements remote.Store.
func (s *Store) UpdateFavorite(ctx context.Context, userID, favoriteID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(userID); err != nil {
		return err
	}

	var (
		sets []string
		args []any
	)
	for _, field := range []string{"name", "location", "extra"} {
		value, ok := fields[field]
		if !ok {
			continue
		}
		switch field {
		case "extra":
			m, isMap := value.(map[string]any)
			if !isMap && value != nil {
				return fmt.Errorf("%w: extra must be an object", remote.ErrInvalidField)
			}
			encoded, err := encodeExtra(m)
			if err != nil {
				return err
			}
			args = append(args, encoded)
		default:
			str, isStr := value.(string)
			if !isStr {
				return fmt.Errorf("%w: %s must be a string", remote.ErrInvalidField, field)
			}
			args = append(args, str)
		}
		sets = append(sets, field+" = ?")
	}
	for field := range fields {
		if field != "name" && field != "location" && field != "extra" {
			return fmt.Errorf("%w: %s", remote.ErrInvalidField, field)
		}
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UnixMilli(), userID, favoriteID)

	res, err := s.db.ExecContext(ctx, s.q(
		"UPDATE remote_favorites SET "+strings.Join(sets, ", ")+" WHERE user_id = ? AND favorite_id = ?"),
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update favorite %q: %w", favoriteID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return remote.ErrNotFound
	}
	return nil
}

// DeleteFavorite implements remote.Store.
func (s *Store) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(userID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		s.q("DELETE FROM remote_favorites WHERE user_id = ? AND favorite_id = ?"),
		userID, favoriteID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete favorite %q: %w", favoriteID, err)
	}
	return nil
}

// ReadFavorites implements remote.Store.
func (s *Store) ReadFavorites(ctx context.Context, userID string) ([]favorites.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT favorite_id, name, location, added_at, extra
		FROM remote_favorites
		WHERE user_id = ?
		ORDER BY added_at ASC, seq ASC`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read favorites: %w", err)
	}
	defer rows.Close()

	out := []favorites.Entry{}
	for rows.Next() {
		var (
			entry   favorites.Entry
			addedAt int64
			extra   sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Location, &addedAt, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		entry.AddedAt = time.UnixMilli(addedAt).UTC()
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &entry.Extra); err != nil {
				return nil, fmt.Errorf("failed to decode extra for favorite %q: %w", entry.ID, err)
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// ArrayUnion implements remote.Store.
func (s *Store) ArrayUnion(ctx context.Context, userID, list string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(userID); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var next int64
		err := tx.QueryRowContext(ctx,
			s.q("SELECT COALESCE(MAX(position), -1) + 1 FROM remote_lists WHERE user_id = ? AND list_name = ?"),
			userID, list,
		).Scan(&next)
		if err != nil {
			return fmt.Errorf("failed to read list %q: %w", list, err)
		}

		for _, v := range values {
			res, err := tx.ExecContext(ctx, s.q(`
				INSERT INTO remote_lists (user_id, list_name, value, position)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (user_id, list_name, value) DO NOTHING`),
				userID, list, v, next,
			)
			if err != nil {
				return fmt.Errorf("failed to add %q to list %q: %w", v, list, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				next++
			}
		}
		return nil
	})
}

// ArrayRemove implements remote.Store.
func (s *Store) ArrayRemove(ctx context.Context, userID, list string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(userID); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, v := range values {
			_, err := tx.ExecContext(ctx,
				s.q("DELETE FROM remote_lists WHERE user_id = ? AND list_name = ? AND value = ?"),
				userID, list, v,
			)
			if err != nil {
				return fmt.Errorf("failed to remove %q from list %q: %w", v, list, err)
			}
		}
		return nil
	})
}

// ReadList implements remote.Store.
func (s *Store) ReadList(ctx context.Context, userID, list string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT value FROM remote_lists WHERE user_id = ? AND list_name = ? ORDER BY position ASC"),
		userID, list,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read list %q: %w", list, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan list %q: %w", list, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ReplaceList implements remote.Store.
func (s *Store) ReplaceList(ctx context.Context, userID, list string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(userID); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			s.q("DELETE FROM remote_lists WHERE user_id = ? AND list_name = ?"),
			userID, list,
		)
		if err != nil {
			return fmt.Errorf("failed to clear list %q: %w", list, err)
		}
		for i, v := range values {
			_, err := tx.ExecContext(ctx, s.q(`
				INSERT INTO remote_lists (user_id, list_name, value, position)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (user_id, list_name, value) DO NOTHING`),
				userID, list, v, i,
			)
			if err != nil {
				return fmt.Errorf("failed to write list %q: %w", list, err)
			}
		}
		return nil
	})
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func encodeExtra(extra map[string]any) (sql.NullString, error) {
	if len(extra) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode extra: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
