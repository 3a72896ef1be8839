package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationStore(t *testing.T) {
	ctx := context.Background()
	s := NewConversationStore(newTestDB(t))

	c := &Conversation{UserID: "alice", Title: "Acme prep"}
	require.NoError(t, s.Create(ctx, c))
	require.NotZero(t, c.ID)
	require.NoError(t, s.Create(ctx, &Conversation{UserID: "bob", Title: "other"}))

	require.NoError(t, s.AppendMessage(ctx, &Message{ConversationID: c.ID, Role: RoleUser, Content: "What does Acme sell?"}))
	require.NoError(t, s.AppendMessage(ctx, &Message{ConversationID: c.ID, Role: RoleAssistant, Content: "Widgets."}))

	err := s.AppendMessage(ctx, &Message{ConversationID: c.ID, Role: "system", Content: "nope"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
	assert.Equal(t, "Widgets.", got.Messages[1].Content)

	list, err := s.ListByUser(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Acme prep", list[0].Title)

	_, err = s.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestConversationAppendToMissingConversation(t *testing.T) {
	s := NewConversationStore(newTestDB(t))
	err := s.AppendMessage(context.Background(), &Message{ConversationID: 42, Role: RoleUser, Content: "hi"})
	assert.Error(t, err)
}
