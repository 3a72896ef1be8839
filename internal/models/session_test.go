package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAndSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	users := NewUserStore(d)
	sessions := NewSessionStore(d)

	u := &User{Email: "rep@example.com", PasswordHash: "hash"}
	require.NoError(t, users.Create(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "member", u.Role)

	byEmail, err := users.GetByEmail(ctx, "rep@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "rep@example.com", byID.Email)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	live := &Session{ID: "live-token", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}
	stale := &Session{ID: "stale-token", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, sessions.Create(ctx, live))
	require.NoError(t, sessions.Create(ctx, stale))

	got, err := sessions.GetByToken(ctx, "live-token")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.False(t, got.Expired(now))
	assert.True(t, got.Expired(now.Add(2*time.Hour)))

	n, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = sessions.GetByToken(ctx, "stale-token")
	assert.Error(t, err)

	require.NoError(t, sessions.Delete(ctx, "live-token"))
	_, err = sessions.GetByToken(ctx, "live-token")
	assert.Error(t, err)
}

func TestUserEmailUnique(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore(newTestDB(t))

	require.NoError(t, users.Create(ctx, &User{Email: "a@example.com", PasswordHash: "x"}))
	assert.Error(t, users.Create(ctx, &User{Email: "a@example.com", PasswordHash: "y"}))
}
