// Package service provides business logic for login, sessions and game
// state, delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/popcoin-idle/popcoin/internal/identity"
	"github.com/popcoin-idle/popcoin/internal/models"
)

// DefaultSessionTTL is how long a backend session stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// ErrInvalidCredential means the identity provider rejected the token
// presented at login. No session is created.
var ErrInvalidCredential = errors.New("invalid credential")

// AuthRepository defines the persistence operations required by the
// authentication service.
type AuthRepository interface {
	// UpsertUser creates or refreshes the user record.
	UpsertUser(ctx context.Context, user models.User) error
	// CreateSession stores a session token with the given lifetime.
	CreateSession(ctx context.Context, token, uid string, ttl time.Duration) error
	// SessionUser resolves a token to its user, (nil, nil) if invalid.
	SessionUser(ctx context.Context, token string) (*models.User, error)
	// DeleteSession removes a session token.
	DeleteSession(ctx context.Context, token string) error
}

// AuthService exchanges identity-provider credentials for backend
// sessions. The verifier is the sole authority on credential validity.
type AuthService struct {
	repo       AuthRepository
	verifier   identity.Verifier
	sessionTTL time.Duration
}

// NewAuthService constructs an AuthService using the provided repository
// and credential verifier.
func NewAuthService(repo AuthRepository, verifier identity.Verifier) *AuthService {
	return &AuthService{repo: repo, verifier: verifier, sessionTTL: DefaultSessionTTL}
}

// Login verifies the identity token, upserts the user profile it
// carries, and issues a fresh backend session token. A rejected token
// returns ErrInvalidCredential with no session created.
func (s *AuthService) Login(ctx context.Context, token string) (*models.User, string, error) {
	id, err := s.verifier.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, "", ErrInvalidCredential
		}
		return nil, "", fmt.Errorf("verify credential: %w", err)
	}

	user := models.User{UID: id.UID, Email: id.Email, Name: id.Name, Picture: id.Picture}
	if user.Name == "" {
		user.Name = "Player"
	}
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("store user: %w", err)
	}

	session := uuid.NewString()
	if err := s.repo.CreateSession(ctx, session, user.UID, s.sessionTTL); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	return &user, session, nil
}

// SessionUser returns the user behind a session token, or (nil, nil)
// when the token is unknown or expired.
func (s *AuthService) SessionUser(ctx context.Context, token string) (*models.User, error) {
	return s.repo.SessionUser(ctx, token)
}

// Logout invalidates the session token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, token)
}
