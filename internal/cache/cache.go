// Package cache provides a small TTL cache keyed by user id. The HTTP layer
// uses it to avoid rebuilding the dashboard report on every render; entries
// are invalidated whenever the user adds an entry.
package cache

import (
	"sync"
	"time"
)

type item[T any] struct {
	data      T
	expiresAt time.Time
}

// TTLCache holds at most one cached value per user. This is a single-user
// journal, so the working set stays tiny and no LRU bookkeeping is needed.
type TTLCache[T any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[int64]item[T]
}

func New[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{
		ttl:   ttl,
		items: make(map[int64]item[T]),
	}
}

// Get returns the cached value for a user, if present and not expired.
func (c *TTLCache[T]) Get(userID int64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	it, ok := c.items[userID]
	if !ok {
		return zero, false
	}
	if time.Now().After(it.expiresAt) {
		delete(c.items, userID)
		return zero, false
	}
	return it.data, true
}

// Set stores a value for a user, replacing any previous entry.
func (c *TTLCache[T]) Set(userID int64, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[userID] = item[T]{
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Invalidate drops the cached value for a user.
func (c *TTLCache[T]) Invalidate(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, userID)
}

// CleanExpired removes all expired entries and returns how many were dropped.
func (c *TTLCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, id)
			removed++
		}
	}
	return removed
}
