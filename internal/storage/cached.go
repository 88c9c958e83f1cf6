package storage

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached is a read-through, write-through cache in front of another KV.
// Misses are not cached so a key written by another process becomes
// visible on the next read once the entry expires.
type Cached struct {
	next  KV
	cache *expirable.LRU[string, string]
}

// NewCached wraps next with an LRU cache holding up to size entries for ttl.
func NewCached(next KV, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// Get returns the cached value or reads through to the backing store.
func (c *Cached) Get(ctx context.Context, key string) (string, error) {
	if value, ok := c.cache.Get(key); ok {
		return value, nil
	}
	value, err := c.next.Get(ctx, key)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, value)
	return value, nil
}

// Set writes to the backing store and then updates the cache.
func (c *Cached) Set(ctx context.Context, key, value string) error {
	if err := c.next.Set(ctx, key, value); err != nil {
		c.cache.Remove(key)
		return err
	}
	c.cache.Add(key, value)
	return nil
}

// Delete removes the key from both the cache and the backing store.
func (c *Cached) Delete(ctx context.Context, key string) error {
	c.cache.Remove(key)
	return c.next.Delete(ctx, key)
}

// Close purges the cache and closes the backing store.
func (c *Cached) Close() error {
	c.cache.Purge()
	return c.next.Close()
}
