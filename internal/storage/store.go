package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// KV is the string key-value store the tracker persists into.
// Every value is an opaque string; callers own serialization.
// Writes overwrite the whole value with no transactional guarantees
// across separate calls.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
