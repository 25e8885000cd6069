// Package session implements the Session Coordinator (spec.md §4.7): the
// per-diagram participant roster used to fan changes and cursor updates out
// to everyone editing a diagram except the sender, and to purge sessions
// that have gone quiet.
package session

import (
	"sync"
	"time"

	"github.com/jongik-sv/kirosync/internal/errors"
)

// Participant is one session's presence within a diagram room.
type Participant struct {
	SessionID    string
	UserID       string
	Username     string
	CursorX      int
	CursorY      int
	LastActivity time.Time
}

// Coordinator tracks, per diagram, which sessions are currently
// participating. Safe for concurrent use.
type Coordinator struct {
	mu       sync.RWMutex
	diagrams map[string]map[string]*Participant // diagramID -> sessionID -> participant
}

// New returns an empty Coordinator.
func New() *Coordinator {
	return &Coordinator{diagrams: make(map[string]map[string]*Participant)}
}

// AddParticipant registers sessionID as a participant of diagramID.
// Re-adding an existing session refreshes its activity timestamp rather
// than erroring.
func (c *Coordinator) AddParticipant(diagramID, sessionID, userID, username string) *Participant {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.diagrams[diagramID]
	if !ok {
		room = make(map[string]*Participant)
		c.diagrams[diagramID] = room
	}
	p := &Participant{
		SessionID:    sessionID,
		UserID:       userID,
		Username:     username,
		LastActivity: time.Now(),
	}
	room[sessionID] = p
	return p
}

// RemoveParticipant removes sessionID from diagramID's roster.
func (c *Coordinator) RemoveParticipant(diagramID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.diagrams[diagramID]
	if !ok {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(c.diagrams, diagramID)
	}
}

// RemoveFromAllSessions removes sessionID from every diagram it
// participates in (used on disconnect, since a socket may be mid-edit on
// only one diagram but the coordinator doesn't assume that). Returns the
// diagram ids it was removed from.
func (c *Coordinator) RemoveFromAllSessions(sessionID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removedFrom []string
	for diagramID, room := range c.diagrams {
		if _, ok := room[sessionID]; ok {
			delete(room, sessionID)
			removedFrom = append(removedFrom, diagramID)
			if len(room) == 0 {
				delete(c.diagrams, diagramID)
			}
		}
	}
	return removedFrom
}

// UpdateCursor records sessionID's latest cursor position within diagramID
// and refreshes its activity timestamp.
func (c *Coordinator) UpdateCursor(diagramID, sessionID string, x, y int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.diagrams[diagramID]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "diagram %q", diagramID)
	}
	p, ok := room[sessionID]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "session %q in diagram %q", sessionID, diagramID)
	}
	p.CursorX, p.CursorY = x, y
	p.LastActivity = time.Now()
	return nil
}

// Touch refreshes sessionID's activity timestamp within diagramID without
// changing its cursor, for non-cursor activity (edits, property changes).
func (c *Coordinator) Touch(diagramID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if room, ok := c.diagrams[diagramID]; ok {
		if p, ok := room[sessionID]; ok {
			p.LastActivity = time.Now()
		}
	}
}

// GetParticipants returns a snapshot of every participant currently in
// diagramID's roster.
func (c *Coordinator) GetParticipants(diagramID string) []*Participant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	room, ok := c.diagrams[diagramID]
	if !ok {
		return nil
	}
	out := make([]*Participant, 0, len(room))
	for _, p := range room {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// Recipients returns the session ids of every participant in diagramID's
// roster except those belonging to excludeUserID — the fan-out set for a
// broadcast. Fan-out is keyed by user, not socket: a user with two sessions
// open on the same diagram never receives their own change back on either
// one.
func (c *Coordinator) Recipients(diagramID, excludeUserID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	room, ok := c.diagrams[diagramID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(room))
	for sessionID, p := range room {
		if p.UserID == excludeUserID {
			continue
		}
		out = append(out, sessionID)
	}
	return out
}

// PurgeInactive removes every participant, across every diagram, whose
// LastActivity is older than olderThan. Returns the number of participants
// removed. spec.md calls for a 24-hour inactivity window.
func (c *Coordinator) PurgeInactive(olderThan time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for diagramID, room := range c.diagrams {
		for sessionID, p := range room {
			if p.LastActivity.Before(cutoff) {
				delete(room, sessionID)
				removed++
			}
		}
		if len(room) == 0 {
			delete(c.diagrams, diagramID)
		}
	}
	return removed
}
