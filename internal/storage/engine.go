// Package storage defines the durable key/value engine the preference
// caches are persisted through. Values are JSON-encoded strings.
package storage

import (
	"context"
	"errors"
	"regexp"
)

// Common errors.
var (
	ErrStoreClosed = errors.New("storage engine is closed")
	ErrInvalidKey  = errors.New("invalid storage key")
)

// Engine is a minimal durable key/value store.
type Engine interface {
	// Get returns the stored value for key. found is false when the key
	// has never been set or was removed.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases the engine's resources.
	Close() error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,127}$`)

// ValidateKey checks that key is safe to use as a file name or object key.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}
