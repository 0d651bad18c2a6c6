package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewSessionStore(rdb, time.Hour)
	ctx := context.Background()
	userID := uuid.New()

	assert.Equal(t, time.Hour, store.TTL())

	id, err := store.Create(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	mr.CheckGet(t, sessionKey(id), userID.String())
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(id)))

	got, err := store.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	other, err := store.Create(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, id, other, "every login gets its own session")

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	require.NoError(t, store.Delete(ctx, id), "deleting twice is fine")

	_, err = store.Lookup(ctx, other)
	assert.NoError(t, err)
}

func TestSessionStore_Expires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewSessionStore(rdb, 30*time.Minute)
	ctx := context.Background()

	id, err := store.Create(ctx, uuid.New())
	require.NoError(t, err)

	mr.FastForward(29 * time.Minute)
	_, err = store.Lookup(ctx, id)
	require.NoError(t, err)

	mr.FastForward(time.Minute)
	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_Lookup(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewSessionStore(rdb, time.Hour)
	ctx := context.Background()

	_, err := store.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, mr.Set(sessionKey("bad"), "not-a-uuid"))
	_, err = store.Lookup(ctx, "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
	assert.Contains(t, err.Error(), "corrupt session")
}
