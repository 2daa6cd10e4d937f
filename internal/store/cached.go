package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru"

	"sealedstate/internal/domain"
)

// Cached is a read-through ARC cache in front of another KeyedStore.
type Cached struct {
	inner domain.KeyedStore
	cache *lru.ARCCache
}

// NewCached caches up to size values of inner.
func NewCached(inner domain.KeyedStore, size int) (*Cached, error) {
	c, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: c}, nil
}

// Get serves addr from the cache, falling back to the inner store.
func (c *Cached) Get(ctx context.Context, addr domain.UserAddress) ([]byte, bool, error) {
	if v, ok := c.cache.Get(addr); ok {
		return append([]byte(nil), v.([]byte)...), true, nil
	}
	v, ok, err := c.inner.Get(ctx, addr)
	if err != nil || !ok {
		return nil, ok, err
	}
	c.cache.Add(addr, append([]byte(nil), v...))
	return v, true, nil
}

// Put writes through to the inner store and caches the value on success.
func (c *Cached) Put(ctx context.Context, addr domain.UserAddress, value []byte) error {
	if err := c.inner.Put(ctx, addr, value); err != nil {
		c.cache.Remove(addr)
		return err
	}
	c.cache.Add(addr, append([]byte(nil), value...))
	return nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int { return c.cache.Len() }

var _ domain.KeyedStore = (*Cached)(nil)
