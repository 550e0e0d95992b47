// Package addresscache holds the client side view of which storage nodes own which keys.  Entries may be stale:
// nothing invalidates them when the routing tier's ring changes, other than an optional time to live.
package addresscache

import (
	"context"
	"sync"
	"time"

	"github.com/tilinna/clock"
)

type entry struct {
	addresses []string
	expires   time.Time // zero for no expiry
}

// Cache maps keys to the addresses of the nodes owning them.  It is safe for concurrent use.  Expiry is measured
// with the clock.Clock carried by the context, so tests can drive it with a mock clock.
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]entry
}

// New creates a Cache.  A ttl of 0 keeps entries until they are replaced or invalidated.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: map[string]entry{},
	}
}

// Lookup returns the cached addresses for key, or nil if the key is unknown or its entry has expired.
func (c *Cache) Lookup(ctx context.Context, key string) []string {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	if !e.expires.IsZero() && !clock.Now(ctx).Before(e.expires) {
		c.mu.Lock()
		// Only drop the entry that was seen, a concurrent Store may have replaced it.
		if cur, ok := c.entries[key]; ok && cur.expires.Equal(e.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil
	}
	return copyAddresses(e.addresses)
}

// Store records addresses as the owners of key, replacing any previous entry.
func (c *Cache) Store(ctx context.Context, key string, addresses []string) {
	e := entry{
		addresses: copyAddresses(addresses),
	}
	if c.ttl > 0 {
		e.expires = clock.Now(ctx).Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Invalidate forgets key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of entries, including expired ones which have not been looked up since.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func copyAddresses(addresses []string) []string {
	if addresses == nil {
		return nil
	}
	out := make([]string, len(addresses))
	copy(out, addresses)
	return out
}
