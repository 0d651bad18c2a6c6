package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/spa-agenda/internal/clinic"
	"github.com/hackgods/spa-agenda/internal/clinic/clinictest"
	redisclient "github.com/hackgods/spa-agenda/internal/redis"
)

type memSessions struct {
	mu   sync.Mutex
	byID map[string]uuid.UUID
}

func newMemSessions() *memSessions { return &memSessions{byID: map[string]uuid.UUID{}} }

func (m *memSessions) Create(_ context.Context, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.byID[id] = userID
	return id, nil
}

func (m *memSessions) Lookup(_ context.Context, id string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.byID[id]
	if !ok {
		return uuid.Nil, redisclient.ErrSessionNotFound
	}
	return userID, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	ok, err := CheckPassword(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "x")
	assert.Error(t, err)
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	user := uuid.New()

	raw, expires, err := issuer.Issue(user, "session-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	gotUser, gotSession, err := issuer.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, user, gotUser)
	assert.Equal(t, "session-1", gotSession)

	_, _, err = NewTokenIssuer("other", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(user, "session-2")
	require.NoError(t, err)
	_, _, err = issuer.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{Username: "ana"})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "ana", id.Username)
}

func TestService_LoginAuthenticateLogout(t *testing.T) {
	ctx := context.Background()
	users := clinictest.New()
	sessions := newMemSessions()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(users, sessions, NewTokenIssuer("secret", time.Hour), log)

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	user, err := users.CreateReceptionist(ctx, clinic.Receptionist{Username: "ana", PasswordHash: hash, IsAdmin: true})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := svc.Login(ctx, " ana ", "pw")
	require.NoError(t, err)
	assert.Equal(t, user.ID, login.User.ID)

	id, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "ana", id.Username)
	assert.True(t, id.IsAdmin)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, svc.Logout(ctx, id))
	_, err = svc.Authenticate(ctx, login.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated, "a logged out session is gone")
}

func TestService_DeletedUserLosesAccess(t *testing.T) {
	ctx := context.Background()
	users := clinictest.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(users, newMemSessions(), NewTokenIssuer("secret", time.Hour), log)

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	user, err := users.CreateReceptionist(ctx, clinic.Receptionist{Username: "bea", PasswordHash: hash})
	require.NoError(t, err)

	login, err := svc.Login(ctx, "bea", "pw")
	require.NoError(t, err)
	require.NoError(t, users.DeleteReceptionist(ctx, user.ID))

	_, err = svc.Authenticate(ctx, login.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
