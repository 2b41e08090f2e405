package favorites

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrNotFound      = errors.New("favorite not found")
	ErrInvalidID     = errors.New("favorite id is empty")
	ErrInvalidSort   = errors.New("invalid sort criteria")
	ErrInvalidImport = errors.New("invalid favorites import")
)

// StorageError reports a failed read or write of the local cache. The
// in-memory state is left at its last known good value.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("favorites storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
