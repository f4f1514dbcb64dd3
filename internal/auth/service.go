// Package auth provides player accounts and session tokens on top of the
// storage repositories.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Cronos79/station-game/internal/infra/storage"
	"github.com/Cronos79/station-game/internal/platform/logger"
)

const (
	// SessionCookie is the cookie name carrying the session token.
	SessionCookie = "station_session"

	sessionTTL = 7 * 24 * time.Hour
	tokenBytes = 32
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("username must be 3-32 characters, letters, digits or underscore")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// Service implements registration, login and token authentication.
type Service struct {
	users    storage.UserRepository
	sessions storage.SessionRepository
	logger   *logger.Logger
}

func NewService(users storage.UserRepository, sessions storage.SessionRepository, log *logger.Logger) *Service {
	return &Service{users: users, sessions: sessions, logger: log}
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, username, password string) (*storage.User, error) {
	username = strings.TrimSpace(username)
	if !validUsername(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(ctx, username, hash)
	if err != nil {
		return nil, err
	}
	s.logger.Event("USER_REGISTERED", fmt.Sprintf("%d", user.ID), username)
	return user, nil
}

// Login checks credentials and mints a session.
func (s *Service) Login(ctx context.Context, username, password string) (*storage.User, *storage.Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !VerifyPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	session := storage.Session{
		Token:     token,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, err
	}
	s.logger.Event("USER_LOGIN", fmt.Sprintf("%d", user.ID), username)
	return user, &session, nil
}

// Logout invalidates a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to its user. Returns (nil, nil)
// for unknown or expired tokens.
func (s *Service) Authenticate(ctx context.Context, token string) (*storage.User, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return s.users.GetByID(ctx, session.UserID)
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func validUsername(username string) bool {
	if len(username) < 3 || len(username) > 32 {
		return false
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}
