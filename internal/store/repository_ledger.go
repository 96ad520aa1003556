// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

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

// SQLLedgerRepository implements the version ledger over the memos and
// categories tables. All mutations are single-statement compare-and-apply
// updates guarded by the observed sync version, so concurrent pushes against
// the same record serialize on the row without explicit transactions.
type SQLLedgerRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewSQLLedgerRepository(db *DB, log *logger.Logger) *SQLLedgerRepository {
	return &SQLLedgerRepository{logger: log, db: db}
}

// rowScanner abstracts sql.Row and sql.Rows for the shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLLedgerRepository) Get(ctx context.Context, entity models.EntityType, userID int64, id string) (models.RecordPayload, error) {
	switch entity {
	case models.EntityMemo:
		memo, err := scanMemo(r.db.QueryRowContext(ctx, selectMemoSQL, userID, id))
		if errors.Is(err, sql.ErrNoRows) {
			return models.RecordPayload{}, fmt.Errorf("%w: memo id=%s", ErrRecordNotFound, id)
		}
		if err != nil {
			return models.RecordPayload{}, err
		}
		return models.MemoPayload(memo), nil

	case models.EntityCategory:
		category, err := scanCategory(r.db.QueryRowContext(ctx, selectCategorySQL, userID, id))
		if errors.Is(err, sql.ErrNoRows) {
			return models.RecordPayload{}, fmt.Errorf("%w: category id=%s", ErrRecordNotFound, id)
		}
		if err != nil {
			return models.RecordPayload{}, err
		}
		return models.CategoryPayload(category), nil

	default:
		return models.RecordPayload{}, fmt.Errorf("%w: entity=%s", models.ErrPayloadMismatch, entity)
	}
}

func (r *SQLLedgerRepository) Insert(ctx context.Context, payload models.RecordPayload, now time.Time) (models.RecordPayload, error) {
	log := logger.FromContext(ctx)

	var err error
	switch payload.Entity {
	case models.EntityMemo:
		memo := *payload.Memo
		tags, merr := marshalTags(memo.Tags)
		if merr != nil {
			return models.RecordPayload{}, merr
		}
		_, err = r.db.ExecContext(ctx, insertMemoSQL,
			memo.ID, memo.UserID, memo.Title, memo.Content, tags, memo.CategoryID, now, now)
		if err == nil {
			memo.CreatedAt, memo.UpdatedAt = now, now
			memo.SyncVersion = 1
			memo.Deleted = false
			payload = models.MemoPayload(memo)
		}

	case models.EntityCategory:
		category := *payload.Category
		_, err = r.db.ExecContext(ctx, insertCategorySQL,
			category.ID, category.UserID, category.Name, category.Color, category.Position, now, now)
		if err == nil {
			category.CreatedAt, category.UpdatedAt = now, now
			category.SyncVersion = 1
			category.Deleted = false
			payload = models.CategoryPayload(category)
		}

	default:
		return models.RecordPayload{}, fmt.Errorf("%w: entity=%s", models.ErrPayloadMismatch, payload.Entity)
	}

	if err != nil {
		if isUniqueViolation(err) {
			return models.RecordPayload{}, fmt.Errorf("%w: %s id=%s", ErrRecordExists, payload.Entity, payload.RecordID())
		}
		return models.RecordPayload{}, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	log.Debug().
		Str("entity", string(payload.Entity)).
		Str("record_id", payload.RecordID()).
		Msg("ledger record inserted")
	return payload, nil
}

func (r *SQLLedgerRepository) Apply(ctx context.Context, payload models.RecordPayload, observed int64, now time.Time) (models.RecordPayload, error) {
	log := logger.FromContext(ctx)

	var (
		result sql.Result
		err    error
	)
	switch payload.Entity {
	case models.EntityMemo:
		memo := *payload.Memo
		tags, merr := marshalTags(memo.Tags)
		if merr != nil {
			return models.RecordPayload{}, merr
		}
		result, err = r.db.ExecContext(ctx, applyMemoSQL,
			memo.Title, memo.Content, tags, memo.CategoryID, now,
			memo.UserID, memo.ID, observed)
		memo.UpdatedAt = now
		memo.SyncVersion = observed + 1
		memo.Deleted = false
		payload = models.MemoPayload(memo)

	case models.EntityCategory:
		category := *payload.Category
		result, err = r.db.ExecContext(ctx, applyCategorySQL,
			category.Name, category.Color, category.Position, now,
			category.UserID, category.ID, observed)
		category.UpdatedAt = now
		category.SyncVersion = observed + 1
		category.Deleted = false
		payload = models.CategoryPayload(category)

	default:
		return models.RecordPayload{}, fmt.Errorf("%w: entity=%s", models.ErrPayloadMismatch, payload.Entity)
	}

	if err != nil {
		return models.RecordPayload{}, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	if err = requireOneRow(result, payload.Entity, payload.RecordID(), observed); err != nil {
		return models.RecordPayload{}, err
	}

	log.Debug().
		Str("entity", string(payload.Entity)).
		Str("record_id", payload.RecordID()).
		Int64("sync_version", payload.SyncVersion()).
		Msg("ledger record applied")
	return payload, nil
}

func (r *SQLLedgerRepository) Tombstone(ctx context.Context, entity models.EntityType, userID int64, id string, observed int64, now time.Time) (models.RecordPayload, error) {
	log := logger.FromContext(ctx)

	var stmt string
	switch entity {
	case models.EntityMemo:
		stmt = tombstoneMemoSQL
	case models.EntityCategory:
		stmt = tombstoneCategorySQL
	default:
		return models.RecordPayload{}, fmt.Errorf("%w: entity=%s", models.ErrPayloadMismatch, entity)
	}

	result, err := r.db.ExecContext(ctx, stmt, now, userID, id, observed)
	if err != nil {
		return models.RecordPayload{}, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	if err = requireOneRow(result, entity, id, observed); err != nil {
		return models.RecordPayload{}, err
	}

	log.Debug().
		Str("entity", string(entity)).
		Str("record_id", id).
		Int64("sync_version", observed+1).
		Msg("ledger record tombstoned")
	return r.Get(ctx, entity, userID, id)
}

func (r *SQLLedgerRepository) ListMemosSince(ctx context.Context, userID int64, since time.Time) ([]models.Memo, error) {
	query, args, err := buildListSince("memos", memoColumns, userID, since)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	defer rows.Close()

	var memos []models.Memo
	for rows.Next() {
		memo, err := scanMemo(rows)
		if err != nil {
			return nil, err
		}
		memos = append(memos, memo)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return memos, nil
}

func (r *SQLLedgerRepository) ListMemoTombstonesSince(ctx context.Context, userID int64, since time.Time) ([]string, error) {
	return r.listTombstones(ctx, "memos", userID, since)
}

func (r *SQLLedgerRepository) ListCategoriesSince(ctx context.Context, userID int64, since time.Time) ([]models.Category, error) {
	query, args, err := buildListSince("categories", categoryColumns, userID, since)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return categories, nil
}

func (r *SQLLedgerRepository) ListCategoryTombstonesSince(ctx context.Context, userID int64, since time.Time) ([]string, error) {
	return r.listTombstones(ctx, "categories", userID, since)
}

func (r *SQLLedgerRepository) listTombstones(ctx context.Context, table string, userID int64, since time.Time) ([]string, error) {
	query, args, err := buildListTombstonesSince(table, userID, since)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return ids, nil
}

func (r *SQLLedgerRepository) ListStates(ctx context.Context, userID int64) ([]models.EntityStatus, error) {
	var states []models.EntityStatus
	for _, entity := range []struct {
		table string
		kind  models.EntityType
	}{
		{"memos", models.EntityMemo},
		{"categories", models.EntityCategory},
	} {
		query, args, err := buildListStates(entity.table, entity.kind, userID)
		if err != nil {
			return nil, err
		}

		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSQLExecution, err)
		}

		for rows.Next() {
			state := models.EntityStatus{Entity: entity.kind}
			if err = rows.Scan(&state.ID, &state.SyncVersion, &state.LastSyncAt, &state.HasConflicts); err != nil {
				rows.Close()
				return nil, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
			}
			states = append(states, state)
		}
		if err = rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
		}
		rows.Close()
	}
	return states, nil
}

// requireOneRow converts an unmatched compare-and-apply update into
// ErrVersionConflict.
func requireOneRow(result sql.Result, entity models.EntityType, id string, observed int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s id=%s observed=%d", ErrVersionConflict, entity, id, observed)
	}
	return nil
}

func marshalTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	return raw, nil
}

func scanMemo(row rowScanner) (models.Memo, error) {
	var (
		memo       models.Memo
		tags       []byte
		categoryID sql.NullString
	)
	err := row.Scan(&memo.ID, &memo.UserID, &memo.Title, &memo.Content, &tags, &categoryID,
		&memo.CreatedAt, &memo.UpdatedAt, &memo.SyncVersion, &memo.Deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Memo{}, err
	}
	if err != nil {
		return models.Memo{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}

	if err = json.Unmarshal(tags, &memo.Tags); err != nil {
		return models.Memo{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	if categoryID.Valid {
		memo.CategoryID = &categoryID.String
	}
	return memo, nil
}

func scanCategory(row rowScanner) (models.Category, error) {
	var category models.Category
	err := row.Scan(&category.ID, &category.UserID, &category.Name, &category.Color, &category.Position,
		&category.CreatedAt, &category.UpdatedAt, &category.SyncVersion, &category.Deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Category{}, err
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return category, nil
}
