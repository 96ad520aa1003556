// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

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

// LocalMirrorRepository is the SQLite-backed local copy of the user's
// records. Mirror rows keep the last server-acknowledged sync version next
// to the optimistically applied business fields.
type LocalMirrorRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewLocalMirrorRepository(db *DB, log *logger.Logger) *LocalMirrorRepository {
	return &LocalMirrorRepository{logger: log, db: db}
}

func mirrorTable(entity models.EntityType) (string, error) {
	switch entity {
	case models.EntityMemo:
		return "mirror_memos", nil
	case models.EntityCategory:
		return "mirror_categories", nil
	default:
		return "", fmt.Errorf("%w: entity=%s", models.ErrPayloadMismatch, entity)
	}
}

func (r *LocalMirrorRepository) Upsert(ctx context.Context, payload models.RecordPayload, status models.SyncStatus) error {
	var err error
	switch payload.Entity {
	case models.EntityMemo:
		memo := payload.Memo
		tags, merr := marshalTags(memo.Tags)
		if merr != nil {
			return merr
		}
		_, err = r.db.ExecContext(ctx, upsertMirrorMemoSQL,
			memo.ID, memo.Title, memo.Content, string(tags), memo.CategoryID,
			memo.CreatedAt, memo.UpdatedAt, memo.SyncVersion, memo.Deleted, status)

	case models.EntityCategory:
		category := payload.Category
		_, err = r.db.ExecContext(ctx, upsertMirrorCategorySQL,
			category.ID, category.Name, category.Color, category.Position,
			category.CreatedAt, category.UpdatedAt, category.SyncVersion, category.Deleted, status)

	default:
		return fmt.Errorf("%w: entity=%s", models.ErrPayloadMismatch, payload.Entity)
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	return nil
}

func (r *LocalMirrorRepository) Get(ctx context.Context, entity models.EntityType, id string) (models.RecordPayload, models.SyncStatus, error) {
	switch entity {
	case models.EntityMemo:
		memo, status, err := scanMirrorMemo(r.db.QueryRowContext(ctx, getMirrorMemoSQL, id))
		if errors.Is(err, sql.ErrNoRows) {
			return models.RecordPayload{}, "", fmt.Errorf("%w: memo id=%s", ErrRecordNotFound, id)
		}
		if err != nil {
			return models.RecordPayload{}, "", err
		}
		return models.MemoPayload(memo), status, nil

	case models.EntityCategory:
		category, status, err := scanMirrorCategory(r.db.QueryRowContext(ctx, getMirrorCategorySQL, id))
		if errors.Is(err, sql.ErrNoRows) {
			return models.RecordPayload{}, "", fmt.Errorf("%w: category id=%s", ErrRecordNotFound, id)
		}
		if err != nil {
			return models.RecordPayload{}, "", err
		}
		return models.CategoryPayload(category), status, nil

	default:
		return models.RecordPayload{}, "", fmt.Errorf("%w: entity=%s", models.ErrPayloadMismatch, entity)
	}
}

func (r *LocalMirrorRepository) ListMemos(ctx context.Context) ([]models.Memo, error) {
	rows, err := r.db.QueryContext(ctx, listMirrorMemosSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	defer rows.Close()

	var memos []models.Memo
	for rows.Next() {
		memo, _, err := scanMirrorMemo(rows)
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

func (r *LocalMirrorRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, listMirrorCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		category, _, err := scanMirrorCategory(rows)
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

func (r *LocalMirrorRepository) MarkDeleted(ctx context.Context, entity models.EntityType, id string) error {
	table, err := mirrorTable(entity)
	if err != nil {
		return err
	}
	if _, err = r.db.ExecContext(ctx, fmt.Sprintf(markMirrorDeletedSQL, table), models.StatusPending, id); err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	return nil
}

func (r *LocalMirrorRepository) Remove(ctx context.Context, entity models.EntityType, id string) error {
	table, err := mirrorTable(entity)
	if err != nil {
		return err
	}
	if _, err = r.db.ExecContext(ctx, fmt.Sprintf(removeMirrorRowSQL, table), id); err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	return nil
}

func (r *LocalMirrorRepository) SetStatus(ctx context.Context, entity models.EntityType, id string, status models.SyncStatus) error {
	table, err := mirrorTable(entity)
	if err != nil {
		return err
	}
	if _, err = r.db.ExecContext(ctx, fmt.Sprintf(setMirrorStatusSQL, table), status, id); err != nil {
		return fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}
	return nil
}

func (r *LocalMirrorRepository) CountByStatus(ctx context.Context, status models.SyncStatus) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, countMirrorStatusSQL, status, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return count, nil
}

func scanMirrorMemo(row rowScanner) (models.Memo, models.SyncStatus, error) {
	var (
		memo       models.Memo
		tags       string
		categoryID sql.NullString
		status     models.SyncStatus
	)
	err := row.Scan(&memo.ID, &memo.Title, &memo.Content, &tags, &categoryID,
		&memo.CreatedAt, &memo.UpdatedAt, &memo.SyncVersion, &memo.Deleted, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Memo{}, "", err
	}
	if err != nil {
		return models.Memo{}, "", fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}

	if err = json.Unmarshal([]byte(tags), &memo.Tags); err != nil {
		return models.Memo{}, "", fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	if categoryID.Valid {
		memo.CategoryID = &categoryID.String
	}
	return memo, status, nil
}

func scanMirrorCategory(row rowScanner) (models.Category, models.SyncStatus, error) {
	var (
		category models.Category
		status   models.SyncStatus
	)
	err := row.Scan(&category.ID, &category.Name, &category.Color, &category.Position,
		&category.CreatedAt, &category.UpdatedAt, &category.SyncVersion, &category.Deleted, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Category{}, "", err
	}
	if err != nil {
		return models.Category{}, "", fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}
	return category, status, nil
}
