// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/mkamenev/memobox/internal/adapter"
	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/store"
	"github.com/mkamenev/memobox/models"
)

// clientSyncService runs the push-then-pull round. Push drains the offline
// queue; pull reconciles the mirror with the server and advances the cursor.
// The whole round is serialized behind one mutex so overlapping triggers
// from the orchestrator cannot interleave queue processing.
type clientSyncService struct {
	mirror    store.MirrorRepository
	queue     store.QueueRepository
	syncState store.SyncStateRepository
	adapter   adapter.ServerAdapter

	maxRetries int
	logger     *logger.Logger

	mu sync.Mutex
}

func NewClientSyncService(
	storages *store.ClientStorages,
	serverAdapter adapter.ServerAdapter,
	cfg config.ClientSync,
	logger *logger.Logger,
) ClientSyncService {
	return &clientSyncService{
		mirror:     storages.MirrorRepository,
		queue:      storages.QueueRepository,
		syncState:  storages.SyncStateRepository,
		adapter:    serverAdapter,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

// SyncOnce implements [ClientSyncService].
func (s *clientSyncService) SyncOnce(ctx context.Context) (SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adapter.Token() == "" {
		return SyncReport{}, ErrNotAuthenticated
	}

	var report SyncReport
	if err := s.push(ctx, &report); err != nil {
		return report, err
	}
	if err := s.pull(ctx, &report); err != nil {
		return report, err
	}

	s.logger.Info().
		Int("pushed", report.Pushed).
		Int("conflicted", report.Conflicted).
		Int("dropped", report.Dropped).
		Int("applied", report.Applied).
		Msg("sync round finished")

	return report, nil
}

// push uploads the queue in FIFO order and reconciles the acknowledgement:
// clean changes leave the queue, conflicted ones leave the queue and flag
// the mirror row, failed ones stay queued until the retry cap drops them.
func (s *clientSyncService) push(ctx context.Context, report *SyncReport) error {
	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return fmt.Errorf("read offline queue: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	result, err := s.adapter.Push(ctx, models.PushRequest{Changes: pending})
	if err != nil {
		return fmt.Errorf("push offline queue: %w", err)
	}

	conflicted := make(map[string]struct{}, len(result.Conflicts))
	for _, conflict := range result.Conflicts {
		conflicted[conflict.ID] = struct{}{}
	}
	failed := make(map[string]string, len(result.Errors))
	for _, changeErr := range result.Errors {
		failed[changeErr.ChangeID] = changeErr.Message
	}

	for _, change := range pending {
		recordID := change.Payload.RecordID()

		switch {
		case s.handleFailed(ctx, change, failed, report):

		case s.isConflicted(change, conflicted):
			if err = s.queue.Remove(ctx, change.ID); err != nil {
				return fmt.Errorf("remove conflicted change: %w", err)
			}
			if err = s.mirror.SetStatus(ctx, change.Entity, recordID, models.StatusConflict); err != nil {
				return fmt.Errorf("flag conflicted mirror row: %w", err)
			}
			report.Conflicted++

		default:
			if err = s.queue.Remove(ctx, change.ID); err != nil {
				return fmt.Errorf("remove acknowledged change: %w", err)
			}
			if change.Operation == models.OpDelete {
				if err = s.mirror.Remove(ctx, change.Entity, recordID); err != nil {
					return fmt.Errorf("drop deleted mirror row: %w", err)
				}
			} else if err = s.mirror.SetStatus(ctx, change.Entity, recordID, models.StatusSynced); err != nil {
				return fmt.Errorf("mark mirror row synced: %w", err)
			}
			report.Pushed++
		}
	}

	report.OpenConflicts += len(result.Conflicts)
	return nil
}

// handleFailed reports whether the change failed server-side and, if so,
// either leaves it queued for the next round or drops it once the retry cap
// is reached. A dropped change flags its mirror row so the divergence stays
// visible instead of silently disappearing.
func (s *clientSyncService) handleFailed(ctx context.Context, change models.OfflineChange, failed map[string]string, report *SyncReport) bool {
	message, ok := failed[change.ID]
	if !ok {
		return false
	}

	retries, err := s.queue.IncrementRetry(ctx, change.ID)
	if err != nil {
		s.logger.Err(err).Str("change_id", change.ID).Msg("increment retry counter")
		return true
	}

	if retries < s.maxRetries {
		s.logger.Warn().
			Str("change_id", change.ID).
			Str("reason", message).
			Int("retries", retries).
			Msg("change failed, will retry")
		return true
	}

	s.logger.Error().
		Str("change_id", change.ID).
		Str("reason", message).
		Msg("change dropped after retry cap")

	if err = s.queue.Remove(ctx, change.ID); err != nil {
		s.logger.Err(err).Str("change_id", change.ID).Msg("remove dropped change")
	}
	if err = s.mirror.SetStatus(ctx, change.Entity, change.Payload.RecordID(), models.StatusConflict); err != nil {
		s.logger.Err(err).Str("change_id", change.ID).Msg("flag dropped change")
	}
	report.Dropped++
	return true
}

func (s *clientSyncService) isConflicted(change models.OfflineChange, conflicted map[string]struct{}) bool {
	_, ok := conflicted[models.ConflictID(change.Entity, change.Payload.RecordID())]
	return ok
}

// pull fetches server changes after the stored cursor and applies them to
// the mirror. Records that still carry a queued local change are skipped so
// an unpushed edit is never clobbered. The cursor advances only after every
// change applied cleanly.
func (s *clientSyncService) pull(ctx context.Context, report *SyncReport) error {
	cursor, err := s.syncState.GetCursor(ctx)
	if err != nil {
		return fmt.Errorf("read pull cursor: %w", err)
	}

	pulled, err := s.adapter.Pull(ctx, cursor)
	if err != nil {
		return fmt.Errorf("pull server changes: %w", err)
	}

	stillQueued, err := s.queuedRecordIDs(ctx)
	if err != nil {
		return err
	}

	for _, memo := range pulled.UpdatedMemos {
		if _, queued := stillQueued[recordKey(models.EntityMemo, memo.ID)]; queued {
			continue
		}
		if err = s.mirror.Upsert(ctx, models.MemoPayload(memo), models.StatusSynced); err != nil {
			return fmt.Errorf("apply pulled memo: %w", err)
		}
		report.Applied++
	}
	for _, category := range pulled.UpdatedCategories {
		if _, queued := stillQueued[recordKey(models.EntityCategory, category.ID)]; queued {
			continue
		}
		if err = s.mirror.Upsert(ctx, models.CategoryPayload(category), models.StatusSynced); err != nil {
			return fmt.Errorf("apply pulled category: %w", err)
		}
		report.Applied++
	}

	for _, id := range pulled.DeletedMemoIDs {
		if _, queued := stillQueued[recordKey(models.EntityMemo, id)]; queued {
			continue
		}
		if err = s.mirror.Remove(ctx, models.EntityMemo, id); err != nil {
			return fmt.Errorf("apply pulled memo tombstone: %w", err)
		}
	}
	for _, id := range pulled.DeletedCategoryIDs {
		if _, queued := stillQueued[recordKey(models.EntityCategory, id)]; queued {
			continue
		}
		if err = s.mirror.Remove(ctx, models.EntityCategory, id); err != nil {
			return fmt.Errorf("apply pulled category tombstone: %w", err)
		}
	}

	for _, conflict := range pulled.Conflicts {
		if err = s.mirror.SetStatus(ctx, conflict.Entity, conflict.EntityID, models.StatusConflict); err != nil {
			s.logger.Err(err).Str("conflict_id", conflict.ID).Msg("flag pulled conflict")
		}
	}
	report.OpenConflicts = len(pulled.Conflicts)

	if err = s.syncState.SetCursor(ctx, pulled.LastSyncTimestamp); err != nil {
		return fmt.Errorf("advance pull cursor: %w", err)
	}

	return nil
}

func (s *clientSyncService) queuedRecordIDs(ctx context.Context) (map[string]struct{}, error) {
	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("read offline queue: %w", err)
	}

	queued := make(map[string]struct{}, len(pending))
	for _, change := range pending {
		queued[recordKey(change.Entity, change.Payload.RecordID())] = struct{}{}
	}
	return queued, nil
}

func recordKey(entity models.EntityType, id string) string {
	return string(entity) + ":" + id
}

// Resolve implements [ClientSyncService].
func (s *clientSyncService) Resolve(ctx context.Context, resolutions []models.ConflictResolution) (models.ResolveResponse, error) {
	resolved, err := s.adapter.Resolve(ctx, resolutions)
	if err != nil {
		return models.ResolveResponse{}, fmt.Errorf("resolve conflicts: %w", err)
	}
	return resolved, nil
}

// AutoResolve implements [ClientSyncService].
func (s *clientSyncService) AutoResolve(ctx context.Context) (models.ResolveResponse, error) {
	resolved, err := s.adapter.AutoResolve(ctx)
	if err != nil {
		return models.ResolveResponse{}, fmt.Errorf("auto-resolve conflicts: %w", err)
	}
	return resolved, nil
}

// Status implements [ClientSyncService]. The second return value is the
// local queue depth, which the server cannot know.
func (s *clientSyncService) Status(ctx context.Context) (models.StatusResponse, int, error) {
	status, err := s.adapter.Status(ctx)
	if err != nil {
		return models.StatusResponse{}, 0, fmt.Errorf("fetch sync status: %w", err)
	}

	depth, err := s.queue.Depth(ctx)
	if err != nil {
		return models.StatusResponse{}, 0, fmt.Errorf("read queue depth: %w", err)
	}

	return status, depth, nil
}
