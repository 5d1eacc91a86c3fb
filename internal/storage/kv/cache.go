package kv

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedDB wraps a backend with an LRU read cache. Writes and deletes go
// straight through and update the cache, so a reader behind the same
// wrapper never sees a stale value. Iterators bypass the cache.
type CachedDB struct {
	inner DB
	cache *lru.Cache[string, []byte]
}

// NewCached wraps inner with a cache of the given entry count.
func NewCached(inner DB, size int) (*CachedDB, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &CachedDB{inner: inner, cache: cache}, nil
}

func (c *CachedDB) Read(ctx context.Context, key []byte) ([]byte, error) {
	if val, ok := c.cache.Get(string(key)); ok {
		out := make([]byte, len(val))
		copy(out, val)
		return out, nil
	}
	val, err := c.inner.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(string(key), val)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (c *CachedDB) Write(ctx context.Context, key, value []byte) error {
	if err := c.inner.Write(ctx, key, value); err != nil {
		return err
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	c.cache.Add(string(key), cp)
	return nil
}

func (c *CachedDB) Delete(ctx context.Context, key []byte) error {
	if err := c.inner.Delete(ctx, key); err != nil {
		return err
	}
	c.cache.Remove(string(key))
	return nil
}

func (c *CachedDB) Batch(ctx context.Context, ops []BatchOperation) error {
	if err := c.inner.Batch(ctx, ops); err != nil {
		return err
	}
	for _, op := range ops {
		switch op.Type {
		case BatchPut:
			cp := make([]byte, len(op.Value))
			copy(cp, op.Value)
			c.cache.Add(string(op.Key), cp)
		case BatchDelete:
			c.cache.Remove(string(op.Key))
		}
	}
	return nil
}

func (c *CachedDB) Iterator(ctx context.Context, start, end []byte) (Iterator, error) {
	return c.inner.Iterator(ctx, start, end)
}

func (c *CachedDB) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
