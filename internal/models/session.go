package models

import (
	"context"
	"fmt"
	"time"

	"github.com/Saul-Punybz/scout/internal/db"
)

// Session represents an active user session (cookie or bearer auth).
type Session struct {
	ID        string    `json:"id"` // opaque token
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore provides data access methods for sessions.
type SessionStore struct {
	db *db.DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(d *db.DB) *SessionStore {
	return &SessionStore{db: d}
}

// Create inserts a new session.
func (s *SessionStore) Create(ctx context.Context, session *Session) error {
	session.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`), session.ID, session.UserID, session.ExpiresAt.UTC(), session.CreatedAt)
	if err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	return nil
}

// GetByToken returns a session by its token string.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT id, user_id, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`), token).Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	return &sess, nil
}

// Delete removes a session by its token.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE id = ?`), token)
	if err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions that expired before now and returns how
// many were removed.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("session delete expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session delete expired: rows affected: %w", err)
	}
	return n, nil
}
