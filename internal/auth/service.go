package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/spa-agenda/internal/clinic"
	redisclient "github.com/hackgods/spa-agenda/internal/redis"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
)

type Users interface {
	FindReceptionistByUsername(ctx context.Context, username string) (*clinic.Receptionist, error)
	GetReceptionist(ctx context.Context, id uuid.UUID) (*clinic.Receptionist, error)
}

// Sessions stores live logins. Lookup returns redisclient.ErrSessionNotFound
// for unknown or expired sessions.
type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Lookup(ctx context.Context, id string) (uuid.UUID, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	users    Users
	sessions Sessions
	tokens   *TokenIssuer
	log      *slog.Logger
}

func NewService(users Users, sessions Sessions, tokens *TokenIssuer, log *slog.Logger) *Service {
	return &Service{users: users, sessions: sessions, tokens: tokens, log: log.With(slog.String("component", "auth"))}
}

type Login struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	User      clinic.Receptionist `json:"user"`
}

func (s *Service) Login(ctx context.Context, username, password string) (*Login, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindReceptionistByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, clinic.ErrReceptionistNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		s.log.Warn("login failed", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}

	sessionID, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	token, expires, err := s.tokens.Issue(user.ID, sessionID)
	if err != nil {
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, err
	}

	s.log.Info("login", slog.String("receptionist_id", user.ID.String()))
	return &Login{Token: token, ExpiresAt: expires, User: *user}, nil
}

// Authenticate resolves a bearer token to a live identity.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	userID, sessionID, err := s.tokens.Parse(token)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}

	owner, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil {
		if errors.Is(err, redisclient.ErrSessionNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, fmt.Errorf("lookup session: %w", err)
	}
	if owner != userID {
		return Identity{}, ErrUnauthenticated
	}

	user, err := s.users.GetReceptionist(ctx, userID)
	if err != nil {
		if errors.Is(err, clinic.ErrReceptionistNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, fmt.Errorf("load user: %w", err)
	}

	return Identity{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin, SessionID: sessionID}, nil
}

func (s *Service) Logout(ctx context.Context, id Identity) error {
	if err := s.sessions.Delete(ctx, id.SessionID); err != nil {
		return err
	}
	s.log.Info("logout", slog.String("receptionist_id", id.ID.String()))
	return nil
}
