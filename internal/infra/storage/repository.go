// Package storage provides the persistence layer for the station server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"

	"github.com/Cronos79/station-game/internal/universe"
)

// UniverseStore persists the authoritative universe snapshot. There is
// exactly one snapshot; Save overwrites it and Load returns the latest.
type UniverseStore interface {
	// Save atomically replaces the stored snapshot.
	Save(ctx context.Context, state *universe.State, lastUpdate time.Time) error

	// Load retrieves the stored snapshot. Returns (nil, zero, nil) when no
	// snapshot exists yet.
	Load(ctx context.Context) (*universe.State, time.Time, error)
}

// User is a registered player account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a login token bound to a user.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserRepository defines the interface for account persistence.
type UserRepository interface {
	// Create inserts a new account and returns it with its assigned ID.
	Create(ctx context.Context, username, passwordHash string) (*User, error)

	// GetByUsername retrieves an account by name. Returns (nil, nil) when
	// the account does not exist.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID retrieves an account by ID. Returns (nil, nil) when missing.
	GetByID(ctx context.Context, id int64) (*User, error)
}

// SessionRepository defines the interface for session persistence.
type SessionRepository interface {
	// Create inserts a new session.
	Create(ctx context.Context, session Session) error

	// Get retrieves a session by token. Returns (nil, nil) when the token
	// is unknown or the session has expired.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes a session (logout).
	Delete(ctx context.Context, token string) error
}
