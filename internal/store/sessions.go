package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/jongik-sv/kirosync/internal/errors"
)

// CollaborationSession is the durable mirror of the in-memory Session
// Coordinator (spec.md §4.7): it survives a process restart, but the
// in-memory coordinator remains authoritative for the life of the process
// and GetParticipants reads only the in-memory roster, not these rows.
type CollaborationSession struct {
	ID           string
	DiagramID    string
	UserID       string
	Active       bool
	JoinedAt     time.Time
	LastActiveAt time.Time
}

// SessionStore persists CollaborationSession rows.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore wraps db as a SessionStore.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Upsert records a session joining (or rejoining) a diagram.
func (s *SessionStore) Upsert(ctx context.Context, diagramID, userID string) (*CollaborationSession, error) {
	now := time.Now()
	cs := &CollaborationSession{
		ID:           uuid.New().String(),
		DiagramID:    diagramID,
		UserID:       userID,
		Active:       true,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collaboration_sessions (id, diagram_id, user_id, active, joined_at, last_active_at)
		 VALUES (?, ?, ?, 1, ?, ?)`,
		cs.ID, cs.DiagramID, cs.UserID, cs.JoinedAt, cs.LastActiveAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create collaboration session")
	}
	return cs, nil
}

// Get returns the session with id, or ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, id string) (*CollaborationSession, error) {
	cs := &CollaborationSession{}
	var active int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, diagram_id, user_id, active, joined_at, last_active_at FROM collaboration_sessions WHERE id = ?`, id,
	).Scan(&cs.ID, &cs.DiagramID, &cs.UserID, &active, &cs.JoinedAt, &cs.LastActiveAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get collaboration session")
	}
	cs.Active = active != 0
	return cs, nil
}

// Deactivate marks a session inactive (on disconnect).
func (s *SessionStore) Deactivate(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE collaboration_sessions SET active = 0, last_active_at = ? WHERE id = ?", time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "deactivate session %q", id)
	}
	return nil
}

// PurgeInactive deletes sessions inactive for longer than olderThan,
// mirroring the in-memory coordinator's 24-hour purge window.
func (s *SessionStore) PurgeInactive(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM collaboration_sessions WHERE active = 0 AND last_active_at < ?", cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "purge inactive sessions")
	}
	return result.RowsAffected()
}
