package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jongik-sv/kirosync/internal/errors"
)

// User is the persisted shape of a registered user (spec.md §6).
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	LastSeenAt   time.Time
	Online       bool
}

// UserStore persists User rows.
type UserStore struct {
	db *sql.DB
}

// NewUserStore wraps db as a UserStore.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func validateUser(username, email string) error {
	if n := len(username); n < 3 || n > 30 {
		return errors.Wrapf(errors.ErrValidation, "username must be 3-30 characters, got %d", n)
	}
	if email == "" || !strings.Contains(email, "@") {
		return errors.Wrapf(errors.ErrValidation, "invalid email %q", email)
	}
	return nil
}

// Create inserts a new user with a generated id. email is lowercased before
// storage so uniqueness is case-insensitive.
func (s *UserStore) Create(ctx context.Context, username, email, passwordHash string) (*User, error) {
	if err := validateUser(username, email); err != nil {
		return nil, err
	}
	email = strings.ToLower(email)
	now := time.Now()
	u := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		LastSeenAt:   now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, last_seen_at, online)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt, u.LastSeenAt,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return nil, errors.Wrapf(errors.ErrAlreadyExists, "user %q/%q", username, email)
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

func (s *UserStore) scanRow(row *sql.Row) (*User, error) {
	u := &User{}
	var online int
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.LastSeenAt, &online)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan user")
	}
	u.Online = online != 0
	return u, nil
}

// GetByID returns the user with id, or ErrNotFound.
func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, last_seen_at, online FROM users WHERE id = ?`, id)
	return s.scanRow(row)
}

// GetByUsername returns the user with username, or ErrNotFound.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, last_seen_at, online FROM users WHERE username = ?`, username)
	return s.scanRow(row)
}

// GetByEmail returns the user with email (case-insensitively), or
// ErrNotFound.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, last_seen_at, online FROM users WHERE email = ?`, strings.ToLower(email))
	return s.scanRow(row)
}

// SetOnline flips a user's online flag.
func (s *UserStore) SetOnline(ctx context.Context, id string, online bool) error {
	v := 0
	if online {
		v = 1
	}
	_, err := s.db.ExecContext(ctx, "UPDATE users SET online = ? WHERE id = ?", v, id)
	if err != nil {
		return errors.Wrapf(err, "set online for user %q", id)
	}
	return nil
}

// Touch refreshes a user's last-seen timestamp.
func (s *UserStore) Touch(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_seen_at = ? WHERE id = ?", time.Now(), id)
	if err != nil {
		return errors.Wrapf(err, "touch user %q", id)
	}
	return nil
}

// SweepStaleOnline flips every user whose online flag is set but whose
// last_seen_at is older than olderThan back to offline (spec.md §6: an
// online user who hasn't been seen in 5 minutes is presumed disconnected).
// Returns the number of rows flipped.
func (s *UserStore) SweepStaleOnline(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, "UPDATE users SET online = 0 WHERE online = 1 AND last_seen_at < ?", cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "sweep stale online users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected for stale online sweep")
	}
	return n, nil
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
