package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/goodtune/studytime/internal/storage"
	"go.etcd.io/bbolt"
)

const (
	bucketKV = "kv"

	// lockTimeout bounds the wait for another process holding the file lock.
	lockTimeout = 5 * time.Second
)

// Store implements storage.KV using bbolt. The database file is opened for
// each operation and closed right after, so several processes (the
// long-running tracker and one-shot commands) can share it.
type Store struct {
	path string

	// mu serializes opens from this process; bbolt's flock is per open file.
	mu sync.Mutex
}

// Open prepares a BoltDB-backed store at path, creating the file and bucket.
func Open(path string) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	store := &Store{path: path}
	if err := store.update(context.Background(), func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketKV)); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketKV, err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return store, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return storage.EnsureDir(dir)
}

// withDB opens the database, runs fn and closes it again. Read-only opens
// take a shared lock.
func (s *Store) withDB(ctx context.Context, readOnly bool, fn func(db *bbolt.DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: lockTimeout, ReadOnly: readOnly})
	if err != nil {
		return fmt.Errorf("open bolt db: %w", err)
	}
	defer func() { _ = db.Close() }()

	return fn(db)
}

func (s *Store) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	return s.withDB(ctx, true, func(db *bbolt.DB) error {
		return db.View(fn)
	})
}

func (s *Store) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	return s.withDB(ctx, false, func(db *bbolt.DB) error {
		return db.Update(fn)
	})
}

// Close is a no-op; the database is only open during an operation.
func (s *Store) Close() error {
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketKV))
		if b == nil {
			return storage.ErrNotFound
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return storage.ErrNotFound
		}
		// raw is only valid inside the transaction
		value = string(raw)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketKV))
		if b == nil {
			return fmt.Errorf("bucket missing: %s", bucketKV)
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// Delete removes key. Deleting a missing key returns storage.ErrNotFound.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketKV))
		if b == nil {
			return storage.ErrNotFound
		}
		if b.Get([]byte(key)) == nil {
			return storage.ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}
