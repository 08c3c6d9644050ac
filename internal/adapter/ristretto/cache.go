// Package ristretto adapts dgraph-io/ristretto to the cache port.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a byte-valued in-process cache. Its main occupant is the tenant
// activity state the access gate consults on every authenticated request,
// which must not cost a catalog query each time.
type Cache struct {
	inner *ristretto.Cache[string, []byte]
}

// New sizes the cache by the total bytes of cached values. Counter space is
// provisioned at roughly ten times the expected entry count so admission
// decisions stay accurate.
func New(maxCostBytes int64) (*Cache, error) {
	inner, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner}, nil
}

// Get reports whether key is cached and returns its value if so. A miss is
// not an error.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.inner.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set caches value under key for at most ttl, costed at its byte length.
// Ristretto may decline admission under pressure; callers treat the cache as
// best effort.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.inner.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete evicts key immediately.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.inner.Del(key)
	return nil
}

// Close releases the cache's internal goroutines and buffers.
func (c *Cache) Close() {
	c.inner.Close()
}
