package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Cronos79/station-game/internal/universe"
)

// SQLiteUniverseStore implements UniverseStore on SQLite. The snapshot is
// stored as a zstd-compressed JSON blob in a single row.
type SQLiteUniverseStore struct {
	db      *sql.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewSQLiteUniverseStore(db *sql.DB) (*SQLiteUniverseStore, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &SQLiteUniverseStore{db: db, encoder: enc, decoder: dec}, nil
}

func (s *SQLiteUniverseStore) Save(ctx context.Context, state *universe.State, lastUpdate time.Time) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal universe state: %w", err)
	}
	blob := s.encoder.EncodeAll(raw, nil)

	query := `
		INSERT INTO universe_state (id, state_blob, sim_time, last_update, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state_blob=excluded.state_blob,
			sim_time=excluded.sim_time,
			last_update=excluded.last_update,
			saved_at=excluded.saved_at
	`
	_, err = s.db.ExecContext(ctx, query,
		blob, state.SimTime, float64(lastUpdate.UnixNano())/1e9, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save universe snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteUniverseStore) Load(ctx context.Context) (*universe.State, time.Time, error) {
	query := `SELECT state_blob, last_update FROM universe_state WHERE id = 1`
	var blob []byte
	var lastUpdateUnix float64
	err := s.db.QueryRowContext(ctx, query).Scan(&blob, &lastUpdateUnix)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("failed to load universe snapshot: %w", err)
	}

	raw, err := s.decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decompress universe snapshot: %w", err)
	}
	var state universe.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to unmarshal universe state: %w", err)
	}

	sec := int64(lastUpdateUnix)
	nsec := int64((lastUpdateUnix - float64(sec)) * 1e9)
	return &state, time.Unix(sec, nsec), nil
}

// ---------------------------------------------------------
// SQLiteUserRepository
// ---------------------------------------------------------

type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	now := time.Now()
	query := `INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, username, passwordHash, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`
	var u User
	err := r.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`
	var u User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ---------------------------------------------------------
// SQLiteSessionRepository
// ---------------------------------------------------------

type SQLiteSessionRepository struct {
	db *sql.DB
}

func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

func (r *SQLiteSessionRepository) Create(ctx context.Context, session Session) error {
	query := `INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, session.Token, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepository) Get(ctx context.Context, token string) (*Session, error) {
	query := `SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`
	var s Session
	err := r.db.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if time.Now().After(s.ExpiresAt) {
		// Expired tokens read as absent. Cleanup is best effort.
		_ = r.Delete(ctx, token)
		return nil, nil
	}
	return &s, nil
}

func (r *SQLiteSessionRepository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM sessions WHERE token = ?`
	_, err := r.db.ExecContext(ctx, query, token)
	return err
}
