// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/store"
	"github.com/mkamenev/memobox/internal/validators"
	"github.com/mkamenev/memobox/models"
)

// syncService implements the server side of the sync protocol on top of the
// version ledger, the audit log and the parked-conflict table.
type syncService struct {
	ledger    store.LedgerRepository
	audit     store.AuditRepository
	conflicts store.ConflictRepository
	validator validators.Validator

	logger *logger.Logger
	now    func() time.Time
}

func NewSyncService(ledger store.LedgerRepository, audit store.AuditRepository, conflicts store.ConflictRepository, validator validators.Validator, logger *logger.Logger) SyncService {
	return &syncService{
		ledger:    ledger,
		audit:     audit,
		conflicts: conflicts,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *syncService) Pull(ctx context.Context, userID int64, since time.Time) (models.PullResponse, error) {
	// The cursor timestamp is read before the queries so a write landing
	// mid-pull is re-delivered on the next pull instead of lost.
	now := s.now().UTC()

	memos, err := s.ledger.ListMemosSince(ctx, userID, since)
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("pull memos failed: %w", err)
	}
	categories, err := s.ledger.ListCategoriesSince(ctx, userID, since)
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("pull categories failed: %w", err)
	}

	// An initial sync has nothing local to delete, so tombstones are only
	// reported for incremental pulls.
	var deletedMemoIDs, deletedCategoryIDs []string
	if !since.IsZero() {
		if deletedMemoIDs, err = s.ledger.ListMemoTombstonesSince(ctx, userID, since); err != nil {
			return models.PullResponse{}, fmt.Errorf("pull memo tombstones failed: %w", err)
		}
		if deletedCategoryIDs, err = s.ledger.ListCategoryTombstonesSince(ctx, userID, since); err != nil {
			return models.PullResponse{}, fmt.Errorf("pull category tombstones failed: %w", err)
		}
	}

	open, err := s.conflicts.ListByUser(ctx, userID)
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("pull conflicts failed: %w", err)
	}

	return models.PullResponse{
		UpdatedMemos:       memos,
		DeletedMemoIDs:     deletedMemoIDs,
		UpdatedCategories:  categories,
		DeletedCategoryIDs: deletedCategoryIDs,
		Conflicts:          open,
		LastSyncTimestamp:  now,
	}, nil
}

func (s *syncService) Push(ctx context.Context, userID int64, req models.PushRequest) (models.PushResult, error) {
	log := logger.FromContext(ctx)

	var result models.PushResult
	for _, change := range req.Changes {
		if err := s.validator.Validate(ctx, change); err != nil {
			result.Errors = append(result.Errors, models.ChangeError{ChangeID: change.ID, Message: err.Error()})
			continue
		}
		change.Payload.SetOwner(userID)

		conflict, err := s.applyChange(ctx, userID, change)
		switch {
		case err != nil:
			log.Err(err).Str("change_id", change.ID).Msg("change apply failed")
			result.Errors = append(result.Errors, models.ChangeError{ChangeID: change.ID, Message: err.Error()})

		case conflict != nil:
			if err = s.conflicts.Upsert(ctx, userID, *conflict); err != nil {
				result.Errors = append(result.Errors, models.ChangeError{ChangeID: change.ID, Message: err.Error()})
				continue
			}
			result.Conflicts = append(result.Conflicts, *conflict)

		default:
			result.Processed++
		}
	}

	return result, nil
}

// applyChange applies one offline change. A returned conflict means the
// change was not applied and needs arbitration; a nil, nil return means it
// was applied (or was an idempotent no-op).
func (s *syncService) applyChange(ctx context.Context, userID int64, change models.OfflineChange) (*models.Conflict, error) {
	switch change.Operation {
	case models.OpCreate:
		return s.applyCreate(ctx, userID, change)
	case models.OpUpdate:
		return s.applyUpdate(ctx, userID, change)
	case models.OpDelete:
		return s.applyDelete(ctx, userID, change)
	default:
		return nil, fmt.Errorf("%w: operation %q", ErrInvalidDataProvided, change.Operation)
	}
}

func (s *syncService) applyCreate(ctx context.Context, userID int64, change models.OfflineChange) (*models.Conflict, error) {
	applied, err := s.ledger.Insert(ctx, change.Payload, s.now().UTC())
	if errors.Is(err, store.ErrRecordExists) {
		server, getErr := s.ledger.Get(ctx, change.Entity, userID, change.Payload.RecordID())
		if getErr != nil {
			return nil, getErr
		}
		return s.newConflict(models.ConflictDuplicateCreate, change.Payload, server, []string{"id"}), nil
	}
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, userID, models.OpCreate, applied, false)
	return nil, nil
}

func (s *syncService) applyUpdate(ctx context.Context, userID int64, change models.OfflineChange) (*models.Conflict, error) {
	observed := change.Payload.SyncVersion()
	id := change.Payload.RecordID()

	server, err := s.ledger.Get(ctx, change.Entity, userID, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s id=%s", ErrRecordNotFound, change.Entity, id)
	}
	if err != nil {
		return nil, err
	}

	if server.Deleted() {
		return s.newConflict(models.ConflictDeletedRemotely, change.Payload, server, diffFields(change.Payload, server)), nil
	}

	if server.SyncVersion() == observed {
		applied, applyErr := s.ledger.Apply(ctx, change.Payload, observed, s.now().UTC())
		if errors.Is(applyErr, store.ErrVersionConflict) {
			// Lost a race with a concurrent push; park it for arbitration.
			return s.newConflict(models.ConflictVersionMismatch, change.Payload, server, diffFields(change.Payload, server)), nil
		}
		if applyErr != nil {
			return nil, applyErr
		}
		s.appendAudit(ctx, userID, models.OpUpdate, applied, false)
		return nil, nil
	}

	// Versions diverged: attempt a three-way merge against the audit
	// snapshot of the last state both replicas agreed on. The change
	// carries the version the edit was based on, so that snapshot is the
	// common ancestor.
	ancestor := s.ancestor(ctx, userID, change.Entity, id, min(observed, server.SyncVersion()))
	merged, conflictFields := mergeThreeWay(ancestor, change.Payload, server)
	if len(conflictFields) > 0 {
		return s.newConflict(models.ConflictVersionMismatch, change.Payload, server, conflictFields), nil
	}

	applied, err := s.ledger.Apply(ctx, merged, server.SyncVersion(), s.now().UTC())
	if errors.Is(err, store.ErrVersionConflict) {
		return s.newConflict(models.ConflictVersionMismatch, change.Payload, server, diffFields(change.Payload, server)), nil
	}
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, userID, models.OpUpdate, applied, false)
	return nil, nil
}

func (s *syncService) applyDelete(ctx context.Context, userID int64, change models.OfflineChange) (*models.Conflict, error) {
	observed := change.Payload.SyncVersion()
	id := change.Payload.RecordID()

	server, err := s.ledger.Get(ctx, change.Entity, userID, id)
	if errors.Is(err, store.ErrRecordNotFound) || (err == nil && server.Deleted()) {
		// Deletes are idempotent: already gone counts as applied.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if server.SyncVersion() != observed {
		local := clonePayload(change.Payload)
		markDeleted(&local)
		return s.newConflict(models.ConflictVersionMismatch, local, server, diffFields(change.Payload, server)), nil
	}

	tombstoned, err := s.ledger.Tombstone(ctx, change.Entity, userID, id, observed, s.now().UTC())
	if errors.Is(err, store.ErrVersionConflict) {
		local := clonePayload(change.Payload)
		markDeleted(&local)
		return s.newConflict(models.ConflictVersionMismatch, local, server, diffFields(change.Payload, server)), nil
	}
	if err != nil {
		return nil, err
	}

	s.appendAudit(ctx, userID, models.OpDelete, tombstoned, false)
	return nil, nil
}

func (s *syncService) Resolve(ctx context.Context, userID int64, resolutions []models.ConflictResolution) (models.ResolveResponse, error) {
	log := logger.FromContext(ctx)

	resolved := 0
	for _, resolution := range resolutions {
		if err := s.validator.Validate(ctx, resolution); err != nil {
			log.Err(err).Str("conflict_id", resolution.ConflictID).Msg("invalid resolution skipped")
			continue
		}

		conflict, err := s.conflicts.Get(ctx, userID, resolution.ConflictID)
		if err != nil {
			log.Err(err).Str("conflict_id", resolution.ConflictID).Msg("resolution targets unknown conflict")
			continue
		}

		if resolution.Resolution == models.ResolutionServer {
			if err = s.resolveServerWins(ctx, userID, conflict); err != nil {
				log.Err(err).Str("conflict_id", conflict.ID).Msg("resolution apply failed")
				continue
			}
			resolved++
			continue
		}

		winner := conflict.Local
		if resolution.Resolution == models.ResolutionMerge {
			winner = *resolution.Merged
		}
		winner.SetOwner(userID)

		if err = s.applyResolution(ctx, userID, conflict, winner); err != nil {
			log.Err(err).Str("conflict_id", conflict.ID).Msg("resolution apply failed")
			continue
		}
		resolved++
	}

	return models.ResolveResponse{Resolved: resolved}, nil
}

func (s *syncService) AutoResolve(ctx context.Context, userID int64) (models.ResolveResponse, error) {
	log := logger.FromContext(ctx)

	open, err := s.conflicts.ListByUser(ctx, userID)
	if err != nil {
		return models.ResolveResponse{}, fmt.Errorf("listing conflicts failed: %w", err)
	}

	resolved := 0
	for _, conflict := range open {
		if conflict.Type != models.ConflictVersionMismatch {
			continue
		}

		current, err := s.ledger.Get(ctx, conflict.Entity, userID, conflict.EntityID)
		if err != nil || current.Deleted() {
			continue
		}

		ancestor := s.ancestor(ctx, userID, conflict.Entity, conflict.EntityID,
			min(conflict.LocalSyncVersion, current.SyncVersion()))
		merged, conflictFields := mergeThreeWay(ancestor, conflict.Local, current)
		if len(conflictFields) > 0 {
			continue
		}

		if err = s.applyResolution(ctx, userID, conflict, merged); err != nil {
			log.Err(err).Str("conflict_id", conflict.ID).Msg("auto-resolve apply failed")
			continue
		}
		resolved++
	}

	return models.ResolveResponse{Resolved: resolved}, nil
}

func (s *syncService) Status(ctx context.Context, userID int64) (models.StatusResponse, error) {
	states, err := s.ledger.ListStates(ctx, userID)
	if err != nil {
		return models.StatusResponse{}, fmt.Errorf("listing record states failed: %w", err)
	}

	open, err := s.conflicts.ListByUser(ctx, userID)
	if err != nil {
		return models.StatusResponse{}, fmt.Errorf("listing conflicts failed: %w", err)
	}

	return models.StatusResponse{Entities: states, PendingChanges: len(open)}, nil
}

// applyResolution writes the winning payload on top of the current server
// version and closes the conflict.
func (s *syncService) applyResolution(ctx context.Context, userID int64, conflict models.Conflict, winner models.RecordPayload) error {
	current, err := s.ledger.Get(ctx, conflict.Entity, userID, conflict.EntityID)
	if err != nil {
		return err
	}

	applied, err := s.ledger.Apply(ctx, winner, current.SyncVersion(), s.now().UTC())
	if err != nil {
		return err
	}

	s.appendAudit(ctx, userID, models.OpUpdate, applied, true)
	return s.conflicts.Delete(ctx, userID, conflict.ID)
}

// resolveServerWins re-asserts the live server state under a fresh version.
// Every resolution mints a version, so the next incremental pull re-delivers
// the record and the client can clear its local conflict flag.
func (s *syncService) resolveServerWins(ctx context.Context, userID int64, conflict models.Conflict) error {
	current, err := s.ledger.Get(ctx, conflict.Entity, userID, conflict.EntityID)
	if err != nil {
		return err
	}

	if current.Deleted() {
		// Staying deleted is still a new decision: bump the tombstone so
		// it travels on the next pull.
		tombstoned, tsErr := s.ledger.Tombstone(ctx, conflict.Entity, userID, conflict.EntityID, current.SyncVersion(), s.now().UTC())
		if tsErr != nil {
			return tsErr
		}
		s.appendAudit(ctx, userID, models.OpDelete, tombstoned, true)
		return s.conflicts.Delete(ctx, userID, conflict.ID)
	}

	applied, err := s.ledger.Apply(ctx, current, current.SyncVersion(), s.now().UTC())
	if err != nil {
		return err
	}
	s.appendAudit(ctx, userID, models.OpUpdate, applied, true)
	return s.conflicts.Delete(ctx, userID, conflict.ID)
}

// appendAudit records one accepted apply. Audit failures are logged but do
// not undo the apply: a missing entry only degrades later merges to a plain
// diff.
func (s *syncService) appendAudit(ctx context.Context, userID int64, op models.Operation, applied models.RecordPayload, resolved bool) {
	entry := models.SyncAuditEntry{
		UserID:           userID,
		Entity:           applied.Entity,
		EntityID:         applied.RecordID(),
		Operation:        op,
		SyncVersion:      applied.SyncVersion(),
		Snapshot:         applied,
		ConflictResolved: resolved,
		Timestamp:        s.now().UTC(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("entity", string(entry.Entity)).
			Str("entity_id", entry.EntityID).
			Int64("sync_version", entry.SyncVersion).
			Msg("audit append failed")
	}
}

func (s *syncService) newConflict(kind models.ConflictType, local, server models.RecordPayload, fields []string) *models.Conflict {
	return &models.Conflict{
		ID:                models.ConflictID(local.Entity, local.RecordID()),
		Entity:            local.Entity,
		EntityID:          local.RecordID(),
		Type:              kind,
		ConflictingFields: fields,
		Local:             local,
		Server:            server,
		LocalSyncVersion:  local.SyncVersion(),
		ServerSyncVersion: server.SyncVersion(),
		DetectedAt:        s.now().UTC(),
	}
}

// ancestor fetches the audit snapshot at version, or nil when it is not
// available (version zero, swept entry, or pre-audit records).
func (s *syncService) ancestor(ctx context.Context, userID int64, entity models.EntityType, id string, version int64) *models.RecordPayload {
	if version < 1 {
		return nil
	}
	entry, err := s.audit.GetAtVersion(ctx, userID, entity, id, version)
	if err != nil {
		return nil
	}
	return &entry.Snapshot
}

func markDeleted(p *models.RecordPayload) {
	switch p.Entity {
	case models.EntityMemo:
		if p.Memo != nil {
			p.Memo.Deleted = true
		}
	case models.EntityCategory:
		if p.Category != nil {
			p.Category.Deleted = true
		}
	}
}
