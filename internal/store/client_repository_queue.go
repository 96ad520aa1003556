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

// LocalQueueRepository is the durable FIFO queue of offline changes.
type LocalQueueRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewLocalQueueRepository(db *DB, log *logger.Logger) *LocalQueueRepository {
	return &LocalQueueRepository{logger: log, db: db}
}

func (r *LocalQueueRepository) Enqueue(ctx context.Context, change models.OfflineChange) error {
	payload, err := json.Marshal(change.Payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	_, err = r.db.ExecContext(ctx, enqueueChangeSQL,
		change.ID, change.Operation, change.Entity, string(payload), change.ClientTimestamp, change.RetryCount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	logger.FromContext(ctx).Debug().
		Str("change_id", change.ID).
		Str("operation", string(change.Operation)).
		Msg("offline change queued")
	return nil
}

func (r *LocalQueueRepository) Pending(ctx context.Context) ([]models.OfflineChange, error) {
	rows, err := r.db.QueryContext(ctx, pendingChangesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	defer rows.Close()

	var changes []models.OfflineChange
	for rows.Next() {
		var (
			change  models.OfflineChange
			payload string
		)
		if err = rows.Scan(&change.ID, &change.Operation, &change.Entity, &payload, &change.ClientTimestamp, &change.RetryCount); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
		}
		if err = json.Unmarshal([]byte(payload), &change.Payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
		}
		changes = append(changes, change)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return changes, nil
}

func (r *LocalQueueRepository) Remove(ctx context.Context, changeID string) error {
	if _, err := r.db.ExecContext(ctx, removeChangeSQL, changeID); err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	return nil
}

func (r *LocalQueueRepository) IncrementRetry(ctx context.Context, changeID string) (int, error) {
	if _, err := r.db.ExecContext(ctx, incrementRetrySQL, changeID); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	var count int
	err := r.db.QueryRowContext(ctx, retryCountSQL, changeID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: change id=%s", ErrRecordNotFound, changeID)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return count, nil
}

func (r *LocalQueueRepository) Depth(ctx context.Context) (int, error) {
	var depth int
	if err := r.db.QueryRowContext(ctx, queueDepthSQL).Scan(&depth); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return depth, nil
}
