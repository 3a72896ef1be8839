package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Saul-Punybz/scout/internal/db"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialize to JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStore provides data access methods for users.
type UserStore struct {
	db *db.DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(d *db.DB) *UserStore {
	return &UserStore{db: d}
}

// GetByEmail returns a user by their email address.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE email = ?
	`), email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user get by email: %w", err)
	}
	return &u, nil
}

// GetByID returns a user by id.
func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE id = ?
	`), id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user get by id: %w", err)
	}
	return &u, nil
}

// Create inserts a new user. The ID is generated if not set.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = "member"
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), user.ID, user.Email, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}
