package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Saul-Punybz/scout/internal/db"
)

// Message roles accepted by AppendMessage.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrConversationNotFound is returned when a conversation id does not exist.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrInvalidRole is returned for a message role other than user or assistant.
	ErrInvalidRole = errors.New("conversation: invalid message role")
)

type Conversation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages,omitempty"`
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationStore struct {
	db *db.DB
}

func NewConversationStore(d *db.DB) *ConversationStore {
	return &ConversationStore{db: d}
}

func (s *ConversationStore) Create(ctx context.Context, c *Conversation) error {
	c.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		INSERT INTO conversations (user_id, title, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`), c.UserID, c.Title, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("conversation create: %w", err)
	}
	return nil
}

func (s *ConversationStore) ListByUser(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, user_id, COALESCE(title, ''), created_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversations list: %w", err)
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation scan: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// Get returns a conversation with its messages in the order they were added.
func (s *ConversationStore) Get(ctx context.Context, id int64) (*Conversation, error) {
	var c Conversation
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT id, user_id, COALESCE(title, ''), created_at
		FROM conversations
		WHERE id = ?
	`), id).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversation get: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`), id)
	if err != nil {
		return nil, fmt.Errorf("conversation messages: %w", err)
	}
	defer rows.Close()

	c.Messages = []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation message scan: %w", err)
		}
		c.Messages = append(c.Messages, m)
	}
	return &c, rows.Err()
}

func (s *ConversationStore) AppendMessage(ctx context.Context, m *Message) error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return ErrInvalidRole
	}
	m.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		INSERT INTO messages (conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), m.ConversationID, m.Role, m.Content, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("conversation append message: %w", err)
	}
	return nil
}
