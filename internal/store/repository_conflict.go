package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/models"
)

// SQLConflictRepository stores conflicts parked for user arbitration. Both
// sides of a conflict are kept as full JSONB payloads so the resolve
// endpoints never have to reconstruct a client's view of the record.
type SQLConflictRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewSQLConflictRepository(db *DB, log *logger.Logger) *SQLConflictRepository {
	return &SQLConflictRepository{logger: log, db: db}
}

func (r *SQLConflictRepository) Upsert(ctx context.Context, userID int64, conflict models.Conflict) error {
	log := logger.FromContext(ctx)

	fields, err := json.Marshal(conflict.ConflictingFields)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	local, err := json.Marshal(conflict.Local)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	server, err := json.Marshal(conflict.Server)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	_, err = r.db.ExecContext(ctx, upsertConflictSQL,
		userID, conflict.ID, conflict.Entity, conflict.EntityID, conflict.Type,
		fields, local, server, conflict.LocalSyncVersion, conflict.ServerSyncVersion, conflict.DetectedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	log.Debug().
		Str("conflict_id", conflict.ID).
		Str("type", string(conflict.Type)).
		Msg("conflict parked")
	return nil
}

func (r *SQLConflictRepository) Get(ctx context.Context, userID int64, conflictID string) (models.Conflict, error) {
	row := r.db.QueryRowContext(ctx, selectConflictSQL, userID, conflictID)

	conflict, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conflict{}, fmt.Errorf("%w: id=%s", ErrConflictNotFound, conflictID)
	}
	return conflict, err
}

func (r *SQLConflictRepository) ListByUser(ctx context.Context, userID int64) ([]models.Conflict, error) {
	rows, err := r.db.QueryContext(ctx, selectConflictsByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	defer rows.Close()

	var conflicts []models.Conflict
	for rows.Next() {
		conflict, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, conflict)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return conflicts, nil
}

func (r *SQLConflictRepository) Delete(ctx context.Context, userID int64, conflictID string) error {
	result, err := r.db.ExecContext(ctx, deleteConflictSQL, userID, conflictID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id=%s", ErrConflictNotFound, conflictID)
	}
	return nil
}

func scanConflict(row rowScanner) (models.Conflict, error) {
	var (
		conflict models.Conflict
		fields   []byte
		local    []byte
		server   []byte
	)

	err := row.Scan(&conflict.ID, &conflict.Entity, &conflict.EntityID, &conflict.Type,
		&fields, &local, &server, &conflict.LocalSyncVersion, &conflict.ServerSyncVersion, &conflict.DetectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conflict{}, err
	}
	if err != nil {
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}

	if err = json.Unmarshal(fields, &conflict.ConflictingFields); err != nil {
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	if err = json.Unmarshal(local, &conflict.Local); err != nil {
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	if err = json.Unmarshal(server, &conflict.Server); err != nil {
		return models.Conflict{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return conflict, nil
}
