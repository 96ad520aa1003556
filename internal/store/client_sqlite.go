package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
)

// ErrLocalSessionNotFound is returned when the client has no stored session.
var ErrLocalSessionNotFound = errors.New("local session not found")

// clientSchema bootstraps the mirror, queue and sync-state tables. SQLite
// has no migration history here; the schema is idempotent by construction.
const clientSchema = `
CREATE TABLE IF NOT EXISTS mirror_memos (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    content      TEXT NOT NULL DEFAULT '',
    tags         TEXT NOT NULL DEFAULT '[]',
    category_id  TEXT,
    created_at   TIMESTAMP NOT NULL,
    updated_at   TIMESTAMP NOT NULL,
    sync_version INTEGER NOT NULL DEFAULT 0,
    deleted      INTEGER NOT NULL DEFAULT 0,
    sync_status  TEXT NOT NULL DEFAULT 'synced'
);

CREATE TABLE IF NOT EXISTS mirror_categories (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    color        TEXT NOT NULL DEFAULT '',
    position     INTEGER NOT NULL DEFAULT 0,
    created_at   TIMESTAMP NOT NULL,
    updated_at   TIMESTAMP NOT NULL,
    sync_version INTEGER NOT NULL DEFAULT 0,
    deleted      INTEGER NOT NULL DEFAULT 0,
    sync_status  TEXT NOT NULL DEFAULT 'synced'
);

CREATE TABLE IF NOT EXISTS offline_queue (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    change_id   TEXT NOT NULL UNIQUE,
    operation   TEXT NOT NULL,
    entity      TEXT NOT NULL,
    payload     TEXT NOT NULL,
    client_ts   TIMESTAMP NOT NULL,
    retry_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

// NewConnectSQLite opens (creating if necessary) the SQLite file backing the
// client mirror and bootstraps the schema.
func NewConnectSQLite(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (*DB, error) {
	if err := createLocalDBFileIfNotExists(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseConnection, err)
	}

	conn, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseConnection, err)
	}

	if err = conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseConnection, err)
	}

	if _, err = conn.ExecContext(ctx, clientSchema); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseMigration, err)
	}

	log.Debug().Str("path", cfg.DBPath).Msg("local mirror opened")
	return &DB{DB: conn, logger: log}, nil
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if dbFile == ":memory:" {
		return nil
	}

	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		if dir := filepath.Dir(dbFile); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return mkErr
			}
		}
		f, err := os.Create(dbFile)
		if err != nil {
			return err
		}
		return f.Close()
	}
	return nil
}
