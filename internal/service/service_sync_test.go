package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/store"
	"github.com/mkamenev/memobox/internal/validators"
	"github.com/mkamenev/memobox/models"
)

const (
	testUserID = int64(7)
	memoID     = "0198a6c2-7d8a-7bbb-9c7e-000000000001"
	otherID    = "0198a6c2-7d8a-7bbb-9c7e-000000000002"
)

// In-memory fakes implementing the store interfaces. They reproduce the
// compare-and-apply semantics of the SQL ledger so multi-step scenarios can
// run without a database.

func ledgerKey(entity models.EntityType, id string) string {
	return string(entity) + ":" + id
}

type fakeLedger struct {
	records map[string]models.RecordPayload
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]models.RecordPayload)}
}

func stampLedgerFields(p *models.RecordPayload, version int64, now time.Time, deleted bool) {
	switch p.Entity {
	case models.EntityMemo:
		p.Memo.SyncVersion = version
		p.Memo.UpdatedAt = now
		p.Memo.Deleted = deleted
	case models.EntityCategory:
		p.Category.SyncVersion = version
		p.Category.UpdatedAt = now
		p.Category.Deleted = deleted
	}
}

func (f *fakeLedger) Get(_ context.Context, entity models.EntityType, _ int64, id string) (models.RecordPayload, error) {
	p, ok := f.records[ledgerKey(entity, id)]
	if !ok {
		return models.RecordPayload{}, store.ErrRecordNotFound
	}
	return clonePayload(p), nil
}

func (f *fakeLedger) Insert(_ context.Context, payload models.RecordPayload, now time.Time) (models.RecordPayload, error) {
	key := ledgerKey(payload.Entity, payload.RecordID())
	if _, ok := f.records[key]; ok {
		return models.RecordPayload{}, store.ErrRecordExists
	}
	p := clonePayload(payload)
	stampLedgerFields(&p, 1, now, false)
	f.records[key] = p
	return clonePayload(p), nil
}

func (f *fakeLedger) Apply(_ context.Context, payload models.RecordPayload, observed int64, now time.Time) (models.RecordPayload, error) {
	key := ledgerKey(payload.Entity, payload.RecordID())
	current, ok := f.records[key]
	if !ok || current.SyncVersion() != observed {
		return models.RecordPayload{}, store.ErrVersionConflict
	}
	p := clonePayload(payload)
	stampLedgerFields(&p, observed+1, now, false)
	f.records[key] = p
	return clonePayload(p), nil
}

func (f *fakeLedger) Tombstone(_ context.Context, entity models.EntityType, _ int64, id string, observed int64, now time.Time) (models.RecordPayload, error) {
	key := ledgerKey(entity, id)
	current, ok := f.records[key]
	if !ok || current.SyncVersion() != observed {
		return models.RecordPayload{}, store.ErrVersionConflict
	}
	p := clonePayload(current)
	stampLedgerFields(&p, observed+1, now, true)
	f.records[key] = p
	return clonePayload(p), nil
}

func (f *fakeLedger) ListMemosSince(_ context.Context, _ int64, since time.Time) ([]models.Memo, error) {
	var memos []models.Memo
	for _, p := range f.records {
		if p.Entity != models.EntityMemo || p.Deleted() {
			continue
		}
		if since.IsZero() || p.UpdatedAt().After(since) {
			memos = append(memos, *p.Memo)
		}
	}
	return memos, nil
}

func (f *fakeLedger) ListMemoTombstonesSince(_ context.Context, _ int64, since time.Time) ([]string, error) {
	var ids []string
	for _, p := range f.records {
		if p.Entity != models.EntityMemo || !p.Deleted() {
			continue
		}
		if since.IsZero() || p.UpdatedAt().After(since) {
			ids = append(ids, p.RecordID())
		}
	}
	return ids, nil
}

func (f *fakeLedger) ListCategoriesSince(_ context.Context, _ int64, since time.Time) ([]models.Category, error) {
	var categories []models.Category
	for _, p := range f.records {
		if p.Entity != models.EntityCategory || p.Deleted() {
			continue
		}
		if since.IsZero() || p.UpdatedAt().After(since) {
			categories = append(categories, *p.Category)
		}
	}
	return categories, nil
}

func (f *fakeLedger) ListCategoryTombstonesSince(_ context.Context, _ int64, since time.Time) ([]string, error) {
	var ids []string
	for _, p := range f.records {
		if p.Entity != models.EntityCategory || !p.Deleted() {
			continue
		}
		if since.IsZero() || p.UpdatedAt().After(since) {
			ids = append(ids, p.RecordID())
		}
	}
	return ids, nil
}

func (f *fakeLedger) ListStates(_ context.Context, _ int64) ([]models.EntityStatus, error) {
	var states []models.EntityStatus
	for _, p := range f.records {
		if p.Deleted() {
			continue
		}
		states = append(states, models.EntityStatus{
			Entity:      p.Entity,
			ID:          p.RecordID(),
			SyncVersion: p.SyncVersion(),
			LastSyncAt:  p.UpdatedAt(),
		})
	}
	return states, nil
}

type fakeAudit struct {
	entries map[string]models.SyncAuditEntry
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{entries: make(map[string]models.SyncAuditEntry)}
}

func auditKey(entity models.EntityType, id string, version int64) string {
	return fmt.Sprintf("%s:%s:%d", entity, id, version)
}

func (f *fakeAudit) Append(_ context.Context, entry models.SyncAuditEntry) error {
	f.entries[auditKey(entry.Entity, entry.EntityID, entry.SyncVersion)] = entry
	return nil
}

func (f *fakeAudit) GetAtVersion(_ context.Context, _ int64, entity models.EntityType, entityID string, version int64) (models.SyncAuditEntry, error) {
	entry, ok := f.entries[auditKey(entity, entityID, version)]
	if !ok {
		return models.SyncAuditEntry{}, store.ErrAuditEntryNotFound
	}
	return entry, nil
}

func (f *fakeAudit) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for key, entry := range f.entries {
		if entry.Timestamp.Before(cutoff) {
			delete(f.entries, key)
			removed++
		}
	}
	return removed, nil
}

type fakeConflicts struct {
	parked map[string]models.Conflict
}

func newFakeConflicts() *fakeConflicts {
	return &fakeConflicts{parked: make(map[string]models.Conflict)}
}

func (f *fakeConflicts) Upsert(_ context.Context, _ int64, conflict models.Conflict) error {
	f.parked[conflict.ID] = conflict
	return nil
}

func (f *fakeConflicts) Get(_ context.Context, _ int64, conflictID string) (models.Conflict, error) {
	conflict, ok := f.parked[conflictID]
	if !ok {
		return models.Conflict{}, store.ErrConflictNotFound
	}
	return conflict, nil
}

func (f *fakeConflicts) ListByUser(_ context.Context, _ int64) ([]models.Conflict, error) {
	var conflicts []models.Conflict
	for _, conflict := range f.parked {
		conflicts = append(conflicts, conflict)
	}
	return conflicts, nil
}

func (f *fakeConflicts) Delete(_ context.Context, _ int64, conflictID string) error {
	if _, ok := f.parked[conflictID]; !ok {
		return store.ErrConflictNotFound
	}
	delete(f.parked, conflictID)
	return nil
}

func newTestSyncService() (*syncService, *fakeLedger, *fakeAudit, *fakeConflicts) {
	ledger := newFakeLedger()
	audit := newFakeAudit()
	conflicts := newFakeConflicts()
	svc := NewSyncService(ledger, audit, conflicts, validators.NewSyncValidator(), logger.Nop()).(*syncService)
	return svc, ledger, audit, conflicts
}

func change(op models.Operation, memo models.Memo) models.OfflineChange {
	return models.OfflineChange{
		ID:              "0198a6c2-7d8a-7bbb-9c7e-00000000c000",
		Operation:       op,
		Entity:          models.EntityMemo,
		Payload:         models.MemoPayload(memo),
		ClientTimestamp: time.Now(),
	}
}

func baseMemo() models.Memo {
	return models.Memo{
		ID:      memoID,
		Title:   "groceries",
		Content: "milk",
		Tags:    []string{"home"},
	}
}

func pushOne(t *testing.T, svc *syncService, c models.OfflineChange) models.PushResult {
	t.Helper()
	result, err := svc.Push(context.Background(), testUserID, models.PushRequest{Changes: []models.OfflineChange{c}})
	require.NoError(t, err)
	return result
}

func TestPush_CreateThenUpdateBumpsVersionByOne(t *testing.T) {
	svc, ledger, audit, _ := newTestSyncService()
	ctx := context.Background()

	result := pushOne(t, svc, change(models.OpCreate, baseMemo()))
	require.True(t, result.Clean())
	assert.Equal(t, 1, result.Processed)

	stored, err := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.SyncVersion())
	assert.Equal(t, testUserID, stored.Memo.UserID)

	updated := *stored.Memo
	updated.Title = "groceries v2"
	result = pushOne(t, svc, change(models.OpUpdate, updated))
	require.True(t, result.Clean())

	stored, err = ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.SyncVersion())
	assert.Equal(t, "groceries v2", stored.Memo.Title)

	// One audit snapshot per accepted apply.
	_, err = audit.GetAtVersion(ctx, testUserID, models.EntityMemo, memoID, 1)
	assert.NoError(t, err)
	_, err = audit.GetAtVersion(ctx, testUserID, models.EntityMemo, memoID, 2)
	assert.NoError(t, err)
}

func TestPush_StaleUpdateDisjointFieldsAutoMerges(t *testing.T) {
	svc, ledger, _, conflicts := newTestSyncService()
	ctx := context.Background()

	pushOne(t, svc, change(models.OpCreate, baseMemo()))

	// Replica A changes the title on top of version 1.
	serverSide, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	a := *serverSide.Memo
	a.Title = "title from A"
	require.True(t, pushOne(t, svc, change(models.OpUpdate, a)).Clean())

	// Replica B changes only the content, still observing version 1.
	b := *serverSide.Memo
	b.Content = "content from B"
	result := pushOne(t, svc, change(models.OpUpdate, b))
	require.True(t, result.Clean())
	assert.Equal(t, 1, result.Processed)

	merged, err := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	require.NoError(t, err)
	assert.Equal(t, "title from A", merged.Memo.Title)
	assert.Equal(t, "content from B", merged.Memo.Content)
	assert.Equal(t, int64(3), merged.SyncVersion())
	assert.Empty(t, conflicts.parked)
}

func TestPush_StaleUpdateOverlappingFieldParksConflict(t *testing.T) {
	svc, ledger, _, conflicts := newTestSyncService()
	ctx := context.Background()

	pushOne(t, svc, change(models.OpCreate, baseMemo()))
	serverSide, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)

	a := *serverSide.Memo
	a.Title = "title from A"
	require.True(t, pushOne(t, svc, change(models.OpUpdate, a)).Clean())

	b := *serverSide.Memo
	b.Title = "title from B"
	result := pushOne(t, svc, change(models.OpUpdate, b))

	require.Len(t, result.Conflicts, 1)
	assert.False(t, result.Clean())
	conflict := result.Conflicts[0]
	assert.Equal(t, models.ConflictVersionMismatch, conflict.Type)
	assert.Equal(t, []string{"title"}, conflict.ConflictingFields)
	assert.Equal(t, int64(1), conflict.LocalSyncVersion)
	assert.Equal(t, int64(2), conflict.ServerSyncVersion)
	assert.Contains(t, conflicts.parked, conflict.ID)

	// The server state is untouched by the conflicted change.
	current, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	assert.Equal(t, "title from A", current.Memo.Title)
	assert.Equal(t, int64(2), current.SyncVersion())
}

func TestPush_DuplicateCreate(t *testing.T) {
	svc, _, _, _ := newTestSyncService()

	pushOne(t, svc, change(models.OpCreate, baseMemo()))

	dup := baseMemo()
	dup.Title = "other device"
	result := pushOne(t, svc, change(models.OpCreate, dup))

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictDuplicateCreate, result.Conflicts[0].Type)
	assert.Equal(t, []string{"id"}, result.Conflicts[0].ConflictingFields)
}

func TestPush_UpdateOfTombstonedRecord(t *testing.T) {
	svc, ledger, _, _ := newTestSyncService()
	ctx := context.Background()

	pushOne(t, svc, change(models.OpCreate, baseMemo()))
	current, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)

	del := change(models.OpDelete, *current.Memo)
	require.True(t, pushOne(t, svc, del).Clean())

	upd := *current.Memo
	upd.Title = "edited offline"
	result := pushOne(t, svc, change(models.OpUpdate, upd))

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictDeletedRemotely, result.Conflicts[0].Type)
}

func TestPush_DeleteIsIdempotent(t *testing.T) {
	svc, ledger, _, _ := newTestSyncService()
	ctx := context.Background()

	// Deleting a record the server never saw is a no-op, not an error.
	ghost := baseMemo()
	ghost.ID = otherID
	result := pushOne(t, svc, change(models.OpDelete, ghost))
	require.True(t, result.Clean())
	assert.Equal(t, 1, result.Processed)

	pushOne(t, svc, change(models.OpCreate, baseMemo()))
	current, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)

	require.True(t, pushOne(t, svc, change(models.OpDelete, *current.Memo)).Clean())

	// A second delete of the same record also succeeds.
	result = pushOne(t, svc, change(models.OpDelete, *current.Memo))
	require.True(t, result.Clean())
	assert.Equal(t, 1, result.Processed)

	tombstoned, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	assert.True(t, tombstoned.Deleted())
	assert.Equal(t, int64(2), tombstoned.SyncVersion())
}

func TestPush_InvalidChangeDoesNotAbortBatch(t *testing.T) {
	svc, _, _, _ := newTestSyncService()

	bad := change(models.OpCreate, baseMemo())
	bad.Payload.Memo.Title = ""
	good := change(models.OpCreate, baseMemo())

	result, err := svc.Push(context.Background(), testUserID, models.PushRequest{
		Changes: []models.OfflineChange{bad, good},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, bad.ID, result.Errors[0].ChangeID)
	assert.False(t, result.Clean())
}

func TestPush_PayloadOwnerIsStamped(t *testing.T) {
	svc, ledger, _, _ := newTestSyncService()

	memo := baseMemo()
	memo.UserID = 999 // forged owner
	pushOne(t, svc, change(models.OpCreate, memo))

	stored, err := ledger.Get(context.Background(), models.EntityMemo, testUserID, memoID)
	require.NoError(t, err)
	assert.Equal(t, testUserID, stored.Memo.UserID)
}

func TestPull_InitialAndIncremental(t *testing.T) {
	svc, ledger, _, _ := newTestSyncService()
	ctx := context.Background()

	pushOne(t, svc, change(models.OpCreate, baseMemo()))

	initial, err := svc.Pull(ctx, testUserID, time.Time{})
	require.NoError(t, err)
	assert.Len(t, initial.UpdatedMemos, 1)
	assert.Empty(t, initial.DeletedMemoIDs)
	assert.False(t, initial.LastSyncTimestamp.IsZero())

	cursor := time.Now().Add(-time.Second)

	current, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	require.True(t, pushOne(t, svc, change(models.OpDelete, *current.Memo)).Clean())

	incremental, err := svc.Pull(ctx, testUserID, cursor)
	require.NoError(t, err)
	assert.Empty(t, incremental.UpdatedMemos)
	assert.Equal(t, []string{memoID}, incremental.DeletedMemoIDs)
}

func parkOverlappingConflict(t *testing.T, svc *syncService, ledger *fakeLedger) models.Conflict {
	t.Helper()
	ctx := context.Background()

	pushOne(t, svc, change(models.OpCreate, baseMemo()))
	base, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)

	a := *base.Memo
	a.Title = "title from A"
	require.True(t, pushOne(t, svc, change(models.OpUpdate, a)).Clean())

	b := *base.Memo
	b.Title = "title from B"
	result := pushOne(t, svc, change(models.OpUpdate, b))
	require.Len(t, result.Conflicts, 1)
	return result.Conflicts[0]
}

func TestResolve_LocalWins(t *testing.T) {
	svc, ledger, _, conflicts := newTestSyncService()
	ctx := context.Background()

	conflict := parkOverlappingConflict(t, svc, ledger)

	resp, err := svc.Resolve(ctx, testUserID, []models.ConflictResolution{
		{ConflictID: conflict.ID, Resolution: models.ResolutionLocal},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Resolved)
	assert.Empty(t, conflicts.parked)

	current, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	assert.Equal(t, "title from B", current.Memo.Title)
	assert.Equal(t, int64(3), current.SyncVersion())
}

func TestResolve_ServerWins(t *testing.T) {
	svc, ledger, audit, conflicts := newTestSyncService()
	ctx := context.Background()

	conflict := parkOverlappingConflict(t, svc, ledger)
	cursor := time.Now()

	resp, err := svc.Resolve(ctx, testUserID, []models.ConflictResolution{
		{ConflictID: conflict.ID, Resolution: models.ResolutionServer},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Resolved)
	assert.Empty(t, conflicts.parked)

	// The winning fields are unchanged, but the resolution still mints a
	// version so the record travels on the next incremental pull.
	current, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	assert.Equal(t, "title from A", current.Memo.Title)
	assert.Equal(t, int64(3), current.SyncVersion())

	entry, err := audit.GetAtVersion(ctx, testUserID, models.EntityMemo, memoID, 3)
	require.NoError(t, err)
	assert.True(t, entry.ConflictResolved)

	pulled, err := svc.Pull(ctx, testUserID, cursor)
	require.NoError(t, err)
	require.Len(t, pulled.UpdatedMemos, 1)
	assert.Equal(t, int64(3), pulled.UpdatedMemos[0].SyncVersion)
	assert.Empty(t, pulled.Conflicts)
}

func TestResolve_ServerWinsKeepsTombstone(t *testing.T) {
	svc, ledger, audit, conflicts := newTestSyncService()
	ctx := context.Background()

	pushOne(t, svc, change(models.OpCreate, baseMemo()))
	base, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	require.True(t, pushOne(t, svc, change(models.OpDelete, *base.Memo)).Clean())

	stale := *base.Memo
	stale.Title = "edited offline"
	result := pushOne(t, svc, change(models.OpUpdate, stale))
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, models.ConflictDeletedRemotely, result.Conflicts[0].Type)

	cursor := time.Now()
	resp, err := svc.Resolve(ctx, testUserID, []models.ConflictResolution{
		{ConflictID: result.Conflicts[0].ID, Resolution: models.ResolutionServer},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Resolved)
	assert.Empty(t, conflicts.parked)

	// Staying deleted is re-asserted under a new version; the record is not
	// resurrected and the tombstone travels again.
	current, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	assert.True(t, current.Deleted())
	assert.Equal(t, int64(3), current.SyncVersion())

	entry, err := audit.GetAtVersion(ctx, testUserID, models.EntityMemo, memoID, 3)
	require.NoError(t, err)
	assert.True(t, entry.ConflictResolved)

	pulled, err := svc.Pull(ctx, testUserID, cursor)
	require.NoError(t, err)
	assert.Equal(t, []string{memoID}, pulled.DeletedMemoIDs)
	assert.Empty(t, pulled.UpdatedMemos)
}

func TestResolve_MergeAppliesUserPayload(t *testing.T) {
	svc, ledger, audit, _ := newTestSyncService()
	ctx := context.Background()

	conflict := parkOverlappingConflict(t, svc, ledger)

	merged := baseMemo()
	merged.Title = "title from A and B"
	mergedPayload := models.MemoPayload(merged)

	resp, err := svc.Resolve(ctx, testUserID, []models.ConflictResolution{
		{ConflictID: conflict.ID, Resolution: models.ResolutionMerge, Merged: &mergedPayload},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Resolved)

	current, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	assert.Equal(t, "title from A and B", current.Memo.Title)
	assert.Equal(t, int64(3), current.SyncVersion())

	entry, err := audit.GetAtVersion(ctx, testUserID, models.EntityMemo, memoID, 3)
	require.NoError(t, err)
	assert.True(t, entry.ConflictResolved)
}

func TestResolve_UnknownConflictSkipped(t *testing.T) {
	svc, _, _, _ := newTestSyncService()

	resp, err := svc.Resolve(context.Background(), testUserID, []models.ConflictResolution{
		{ConflictID: "memo:missing", Resolution: models.ResolutionServer},
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Resolved)
}

func TestAutoResolve_MergesWhatNowMergesCleanly(t *testing.T) {
	svc, ledger, _, conflicts := newTestSyncService()
	ctx := context.Background()

	// Park a conflict whose fields no longer overlap once the server side
	// moved back to the base title.
	conflict := parkOverlappingConflict(t, svc, ledger)

	current, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	reverted := *current.Memo
	reverted.Title = "groceries"
	require.True(t, pushOne(t, svc, change(models.OpUpdate, reverted)).Clean())

	resp, err := svc.AutoResolve(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Resolved)
	assert.NotContains(t, conflicts.parked, conflict.ID)

	merged, _ := ledger.Get(ctx, models.EntityMemo, testUserID, memoID)
	assert.Equal(t, "title from B", merged.Memo.Title)
}

func TestStatus_CountsOpenConflicts(t *testing.T) {
	svc, ledger, _, _ := newTestSyncService()
	ctx := context.Background()

	parkOverlappingConflict(t, svc, ledger)

	status, err := svc.Status(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, status.Entities, 1)
	assert.Equal(t, 1, status.PendingChanges)
}
