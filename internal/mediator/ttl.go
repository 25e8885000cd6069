package mediator

import (
	"sync"
	"time"
)

// ttlSet is a set of keys that expire after a fixed TTL, swept periodically
// rather than with a timer per entry — the same idiom the teacher uses for
// its session-token store (a sync.Map of entries carrying their own expiry,
// pruned by a periodic sweep() call).
type ttlSet struct {
	ttl     time.Duration
	entries sync.Map // key -> time.Time (expiresAt)
}

func newTTLSet(ttl time.Duration) *ttlSet {
	return &ttlSet{ttl: ttl}
}

// Mark records key as present, expiring after ttl from now.
func (s *ttlSet) Mark(key string) {
	s.entries.Store(key, time.Now().Add(s.ttl))
}

// Contains reports whether key is present and not yet expired. An expired
// entry is removed as a side effect.
func (s *ttlSet) Contains(key string) bool {
	v, ok := s.entries.Load(key)
	if !ok {
		return false
	}
	expiresAt := v.(time.Time)
	if time.Now().After(expiresAt) {
		s.entries.Delete(key)
		return false
	}
	return true
}

// Sweep removes every expired entry. Intended to be called periodically
// (e.g. every few seconds) by the owner's lifecycle loop.
func (s *ttlSet) Sweep() {
	now := time.Now()
	s.entries.Range(func(k, v any) bool {
		if now.After(v.(time.Time)) {
			s.entries.Delete(k)
		}
		return true
	})
}

// trackedEntry is one changeTracker record: the last signature observed for
// an element, when it was recorded, and when the record itself expires.
type trackedEntry struct {
	signature  string
	recordedAt time.Time
	expiresAt  time.Time
}

// changeTracker remembers the last change signature applied to each
// element, for up to ttl, so a near-duplicate resend of the same change can
// be recognized within a short window without re-deriving it from scratch.
type changeTracker struct {
	ttl     time.Duration
	entries sync.Map // elementID -> trackedEntry
}

func newChangeTracker(ttl time.Duration) *changeTracker {
	return &changeTracker{ttl: ttl}
}

// CheckAndRecordWithinWindow reports whether signature is an exact repeat of
// the last signature recorded for elementID within window of that
// recording, and records (or refreshes) the entry either way.
func (c *changeTracker) CheckAndRecordWithinWindow(elementID, signature string, window time.Duration) bool {
	now := time.Now()
	if v, ok := c.entries.Load(elementID); ok {
		e := v.(trackedEntry)
		if now.Before(e.expiresAt) && e.signature == signature && now.Sub(e.recordedAt) <= window {
			return true
		}
	}
	c.entries.Store(elementID, trackedEntry{
		signature:  signature,
		recordedAt: now,
		expiresAt:  now.Add(c.ttl),
	})
	return false
}

// Sweep removes every expired tracked entry.
func (c *changeTracker) Sweep() {
	now := time.Now()
	c.entries.Range(func(k, v any) bool {
		if now.After(v.(trackedEntry).expiresAt) {
			c.entries.Delete(k)
		}
		return true
	})
}
