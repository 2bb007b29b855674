package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tickerdash/internal/database"
	"github.com/aristath/tickerdash/internal/utils"
	"github.com/rs/zerolog"
)

const slowQuery = 2 * time.Second

// SQLiteStore persists slots in the sessions table.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
	log zerolog.Logger
}

// NewSQLiteStore creates a store over the sessions database. Every save
// pushes the slot's expiry to now + ttl.
func NewSQLiteStore(db *database.DB, ttl time.Duration, log zerolog.Logger) *SQLiteStore {
	return newSQLiteStore(db.Conn(), ttl, log)
}

func newSQLiteStore(conn *sql.DB, ttl time.Duration, log zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:  conn,
		ttl: ttl,
		now: time.Now,
		log: log.With().Str("component", "session_sqlite_store").Logger(),
	}
}

func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM sessions WHERE key = ? AND expires_at > ?",
		key, s.now().Unix(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session slot %s: %w", key, err)
	}
	return data, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, data []byte) error {
	defer utils.OperationTimer("session_save", slowQuery, s.log)()

	now := s.now()
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO sessions (key, data, updated_at, expires_at) VALUES (?, ?, ?, ?)",
		key, data, now.Unix(), now.Add(s.ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session slot %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete session slot %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes slots whose expiry has passed.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
