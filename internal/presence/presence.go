// Package presence implements the presence cache (SPEC_FULL.md §4.10): a
// bidirectional user<->socket lookup with a 1-hour TTL refreshed on
// activity, plus a stale-online sweep, grounded on the teacher's session
// TTL-sweep idiom (a sync.Map of entries carrying their own expiry, pruned
// by a periodic sweep rather than per-entry timers).
package presence

import (
	"sync"
	"time"
)

const (
	// DefaultTTL is how long a presence pair survives without activity.
	DefaultTTL = time.Hour
	// DefaultSweepInterval is how often a caller should invoke Sweep.
	DefaultSweepInterval = 5 * time.Minute
)

type entry struct {
	userID    string
	socketID  string
	expiresAt time.Time
}

// Cache is the bidirectional user<->socket presence lookup for one server
// process. Safe for concurrent use.
type Cache struct {
	ttl time.Duration

	mu       sync.Mutex
	byUser   map[string]*entry
	bySocket map[string]*entry
}

// New returns an empty Cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:      ttl,
		byUser:   make(map[string]*entry),
		bySocket: make(map[string]*entry),
	}
}

// Bind associates userID with socketID, replacing any existing binding for
// either side (a user reconnecting on a new socket displaces their old
// socket mapping; a socket rebinding to a new user — shouldn't normally
// happen — displaces the old user mapping).
func (c *Cache) Bind(userID, socketID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.byUser[userID]; ok {
		delete(c.bySocket, old.socketID)
	}
	if old, ok := c.bySocket[socketID]; ok {
		delete(c.byUser, old.userID)
	}

	e := &entry{userID: userID, socketID: socketID, expiresAt: time.Now().Add(c.ttl)}
	c.byUser[userID] = e
	c.bySocket[socketID] = e
}

// Touch refreshes the TTL for socketID's binding, if one exists.
func (c *Cache) Touch(socketID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.bySocket[socketID]; ok {
		e.expiresAt = time.Now().Add(c.ttl)
	}
}

// SocketFor returns the socket currently bound to userID, if any and not
// expired.
func (c *Cache) SocketFor(userID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byUser[userID]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.socketID, true
}

// UserFor returns the user currently bound to socketID, if any and not
// expired.
func (c *Cache) UserFor(socketID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.bySocket[socketID]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.userID, true
}

// Unbind removes socketID's presence pair (used on disconnect).
func (c *Cache) Unbind(socketID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.bySocket[socketID]
	if !ok {
		return
	}
	delete(c.bySocket, socketID)
	delete(c.byUser, e.userID)
}

// Sweep removes every binding that has exceeded its TTL without activity —
// the stale-online sweep.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	removed := 0
	for socketID, e := range c.bySocket {
		if now.After(e.expiresAt) {
			delete(c.bySocket, socketID)
			delete(c.byUser, e.userID)
			removed++
		}
	}
	return removed
}

// Len returns the number of active bindings.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bySocket)
}
