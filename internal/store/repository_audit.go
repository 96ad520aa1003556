package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/models"
)

// SQLAuditRepository persists the append-only sync audit log. The snapshot
// column keeps the full post-apply record state, which is what the conflict
// resolver reads back as the common ancestor of two diverging replicas.
type SQLAuditRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewSQLAuditRepository(db *DB, log *logger.Logger) *SQLAuditRepository {
	return &SQLAuditRepository{logger: log, db: db}
}

func (r *SQLAuditRepository) Append(ctx context.Context, entry models.SyncAuditEntry) error {
	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	_, err = r.db.ExecContext(ctx, insertAuditSQL,
		entry.UserID, entry.Entity, entry.EntityID, entry.Operation,
		entry.SyncVersion, snapshot, entry.ConflictResolved, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	return nil
}

func (r *SQLAuditRepository) GetAtVersion(ctx context.Context, userID int64, entity models.EntityType, entityID string, version int64) (models.SyncAuditEntry, error) {
	var (
		entry    models.SyncAuditEntry
		snapshot []byte
	)

	row := r.db.QueryRowContext(ctx, selectAuditAtVersionSQL, userID, entity, entityID, version)
	err := row.Scan(&entry.ID, &entry.UserID, &entry.Entity, &entry.EntityID, &entry.Operation,
		&entry.SyncVersion, &snapshot, &entry.ConflictResolved, &entry.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncAuditEntry{}, fmt.Errorf("%w: %s id=%s version=%d", ErrAuditEntryNotFound, entity, entityID, version)
	}
	if err != nil {
		return models.SyncAuditEntry{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}

	if err = json.Unmarshal(snapshot, &entry.Snapshot); err != nil {
		return models.SyncAuditEntry{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return entry, nil
}

func (r *SQLAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, deleteAuditOlderThanSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	if removed > 0 {
		log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("audit entries swept")
	}
	return removed, nil
}
