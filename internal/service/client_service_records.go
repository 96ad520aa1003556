// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/store"
	"github.com/mkamenev/memobox/internal/utils"
	"github.com/mkamenev/memobox/models"
)

// changeNotifier receives a signal after every successful local mutation so
// the sync orchestrator can schedule a near-term round. A nil notifier is
// allowed and ignored.
type changeNotifier interface {
	NotifyLocalChange()
}

// clientRecordsService applies every mutation to the local mirror first and
// queues it for the server. The mirror row carries the sync version last
// acknowledged by the server; the queued change carries the same version so
// the server can run its optimistic-concurrency check.
type clientRecordsService struct {
	mirror   store.MirrorRepository
	queue    store.QueueRepository
	ids      *utils.UUIDGenerator
	notifier changeNotifier
	logger   *logger.Logger

	now func() time.Time
}

func NewClientRecordsService(mirror store.MirrorRepository, queue store.QueueRepository, logger *logger.Logger) *clientRecordsService {
	return &clientRecordsService{
		mirror: mirror,
		queue:  queue,
		ids:    utils.NewUUIDGenerator(),
		logger: logger,
		now:    time.Now,
	}
}

// SetNotifier attaches the orchestrator wake-up hook. Called once during
// wiring; not safe to call while mutations are running.
func (s *clientRecordsService) SetNotifier(notifier changeNotifier) {
	s.notifier = notifier
}

// CreateMemo implements [ClientRecordsService]. The id is generated locally
// so records created offline already carry their final identity.
func (s *clientRecordsService) CreateMemo(ctx context.Context, memo models.Memo) (models.Memo, error) {
	memo.ID = s.ids.Generate()
	memo.CreatedAt = s.now().UTC()
	memo.UpdatedAt = memo.CreatedAt
	memo.SyncVersion = 0
	memo.Deleted = false

	if err := s.stage(ctx, models.OpCreate, models.MemoPayload(memo)); err != nil {
		return models.Memo{}, err
	}

	return memo, nil
}

// UpdateMemo implements [ClientRecordsService]. The memo's SyncVersion must
// be the one read from the mirror; it becomes the observed version of the
// queued change.
func (s *clientRecordsService) UpdateMemo(ctx context.Context, memo models.Memo) (models.Memo, error) {
	if memo.ID == "" {
		return models.Memo{}, ErrEmptyRecordID
	}
	memo.UpdatedAt = s.now().UTC()

	if err := s.stage(ctx, models.OpUpdate, models.MemoPayload(memo)); err != nil {
		return models.Memo{}, err
	}

	return memo, nil
}

// DeleteMemo implements [ClientRecordsService]. The record disappears from
// local listings immediately; the mirror row survives until the server
// acknowledges the tombstone.
func (s *clientRecordsService) DeleteMemo(ctx context.Context, id string) error {
	return s.stageDelete(ctx, models.EntityMemo, id)
}

// GetMemo implements [ClientRecordsService].
func (s *clientRecordsService) GetMemo(ctx context.Context, id string) (models.Memo, models.SyncStatus, error) {
	payload, status, err := s.mirror.Get(ctx, models.EntityMemo, id)
	if err != nil {
		return models.Memo{}, "", fmt.Errorf("get memo from mirror: %w", err)
	}

	return *payload.Memo, status, nil
}

// ListMemos implements [ClientRecordsService].
func (s *clientRecordsService) ListMemos(ctx context.Context) ([]models.Memo, error) {
	return s.mirror.ListMemos(ctx)
}

// CreateCategory implements [ClientRecordsService].
func (s *clientRecordsService) CreateCategory(ctx context.Context, category models.Category) (models.Category, error) {
	category.ID = s.ids.Generate()
	category.CreatedAt = s.now().UTC()
	category.UpdatedAt = category.CreatedAt
	category.SyncVersion = 0
	category.Deleted = false

	if err := s.stage(ctx, models.OpCreate, models.CategoryPayload(category)); err != nil {
		return models.Category{}, err
	}

	return category, nil
}

// UpdateCategory implements [ClientRecordsService].
func (s *clientRecordsService) UpdateCategory(ctx context.Context, category models.Category) (models.Category, error) {
	if category.ID == "" {
		return models.Category{}, ErrEmptyRecordID
	}
	category.UpdatedAt = s.now().UTC()

	if err := s.stage(ctx, models.OpUpdate, models.CategoryPayload(category)); err != nil {
		return models.Category{}, err
	}

	return category, nil
}

// DeleteCategory implements [ClientRecordsService].
func (s *clientRecordsService) DeleteCategory(ctx context.Context, id string) error {
	return s.stageDelete(ctx, models.EntityCategory, id)
}

// ListCategories implements [ClientRecordsService].
func (s *clientRecordsService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.mirror.ListCategories(ctx)
}

// stage writes the optimistic mirror copy and enqueues the change.
func (s *clientRecordsService) stage(ctx context.Context, op models.Operation, payload models.RecordPayload) error {
	if err := payload.Check(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	if err := s.mirror.Upsert(ctx, payload, models.StatusPending); err != nil {
		return fmt.Errorf("stage mirror write: %w", err)
	}

	change := models.OfflineChange{
		ID:              s.ids.Generate(),
		Operation:       op,
		Entity:          payload.Entity,
		Payload:         payload,
		ClientTimestamp: s.now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, change); err != nil {
		return fmt.Errorf("enqueue offline change: %w", err)
	}

	s.wake()
	return nil
}

func (s *clientRecordsService) stageDelete(ctx context.Context, entity models.EntityType, id string) error {
	if id == "" {
		return ErrEmptyRecordID
	}

	payload, _, err := s.mirror.Get(ctx, entity, id)
	if err != nil {
		return fmt.Errorf("load record for delete: %w", err)
	}

	if err = s.mirror.MarkDeleted(ctx, entity, id); err != nil {
		return fmt.Errorf("mark mirror record deleted: %w", err)
	}

	change := models.OfflineChange{
		ID:              s.ids.Generate(),
		Operation:       models.OpDelete,
		Entity:          entity,
		Payload:         payload,
		ClientTimestamp: s.now().UTC(),
	}
	if err = s.queue.Enqueue(ctx, change); err != nil {
		return fmt.Errorf("enqueue offline delete: %w", err)
	}

	s.wake()
	return nil
}

func (s *clientRecordsService) wake() {
	if s.notifier != nil {
		s.notifier.NotifyLocalChange()
	}
}
