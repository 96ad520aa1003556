// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/migrations"
)

// DB wraps the raw connection pool together with the error classifier shared
// by every repository.
type DB struct {
	*sql.DB
	classifier ErrorClassifier
	logger     *logger.Logger
}

// NewConnectPostgres opens a PostgreSQL pool via the pgx stdlib driver,
// verifies connectivity and runs pending migrations.
func NewConnectPostgres(ctx context.Context, cfg config.DB, log *logger.Logger) (*DB, error) {
	pool, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseConnection, err)
	}

	if err = pool.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseConnection, err)
	}

	db := &DB{
		DB:         pool,
		classifier: NewPostgresErrorClassifier(),
		logger:     log,
	}

	if err = db.Migrate(); err != nil {
		return nil, err
	}

	log.Info().Msg("connected to postgres")
	return db, nil
}

// Migrate applies the embedded goose migrations.
func (db *DB) Migrate() error {
	if err := migrations.Migrate(db.DB); err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseMigration, err)
	}
	return nil
}
