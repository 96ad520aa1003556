package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkamenev/memobox/internal/logger"
)

const (
	stateKeyCursor  = "cursor"
	stateKeySession = "session"
)

// LocalSyncStateRepository persists the pull cursor and the session token in
// the sync_state key-value table.
type LocalSyncStateRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewLocalSyncStateRepository(db *DB, log *logger.Logger) *LocalSyncStateRepository {
	return &LocalSyncStateRepository{logger: log, db: db}
}

type storedSession struct {
	UserID int64  `json:"user_id"`
	Token  string `json:"token"`
}

func (r *LocalSyncStateRepository) GetCursor(ctx context.Context) (time.Time, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, getSyncStateSQL, stateKeyCursor).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}

	cursor, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return cursor, nil
}

func (r *LocalSyncStateRepository) SetCursor(ctx context.Context, cursor time.Time) error {
	_, err := r.db.ExecContext(ctx, setSyncStateSQL, stateKeyCursor, cursor.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	return nil
}

func (r *LocalSyncStateRepository) SaveSession(ctx context.Context, userID int64, token string) error {
	raw, err := json.Marshal(storedSession{UserID: userID, Token: token})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	if _, err = r.db.ExecContext(ctx, setSyncStateSQL, stateKeySession, string(raw)); err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	return nil
}

func (r *LocalSyncStateRepository) GetSession(ctx context.Context) (int64, string, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, getSyncStateSQL, stateKeySession).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrLocalSessionNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}

	var session storedSession
	if err = json.Unmarshal([]byte(raw), &session); err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return session.UserID, session.Token, nil
}
