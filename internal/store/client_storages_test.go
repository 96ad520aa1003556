package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/models"
)

func newTestClientStorages(t *testing.T) *ClientStorages {
	t.Helper()

	storages, err := NewClientStorages(context.Background(), config.ClientStorage{DBPath: ":memory:"}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { storages.Close() })
	return storages
}

func TestLocalMirrorRepository_UpsertGetList(t *testing.T) {
	storages := newTestClientStorages(t)
	ctx := context.Background()

	memo := testMemo()
	memo.CreatedAt = time.Now().Add(-time.Hour)
	memo.UpdatedAt = time.Now()

	require.NoError(t, storages.MirrorRepository.Upsert(ctx, models.MemoPayload(memo), models.StatusPending))

	got, status, err := storages.MirrorRepository.Get(ctx, models.EntityMemo, memo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, status)
	assert.Equal(t, memo.Title, got.Memo.Title)
	assert.Equal(t, []string{"home"}, got.Memo.Tags)

	memos, err := storages.MirrorRepository.ListMemos(ctx)
	require.NoError(t, err)
	assert.Len(t, memos, 1)

	// Upsert with the same id replaces in place.
	memo.Title = "renamed"
	memo.SyncVersion = 4
	require.NoError(t, storages.MirrorRepository.Upsert(ctx, models.MemoPayload(memo), models.StatusSynced))

	got, status, err = storages.MirrorRepository.Get(ctx, models.EntityMemo, memo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, status)
	assert.Equal(t, "renamed", got.Memo.Title)
	assert.Equal(t, int64(4), got.SyncVersion())
}

func TestLocalMirrorRepository_MarkDeletedHidesRecord(t *testing.T) {
	storages := newTestClientStorages(t)
	ctx := context.Background()

	memo := testMemo()
	memo.CreatedAt, memo.UpdatedAt = time.Now(), time.Now()
	require.NoError(t, storages.MirrorRepository.Upsert(ctx, models.MemoPayload(memo), models.StatusSynced))

	require.NoError(t, storages.MirrorRepository.MarkDeleted(ctx, models.EntityMemo, memo.ID))

	_, _, err := storages.MirrorRepository.Get(ctx, models.EntityMemo, memo.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	memos, err := storages.MirrorRepository.ListMemos(ctx)
	require.NoError(t, err)
	assert.Empty(t, memos)

	// The hidden row still counts as pending until the server acknowledges.
	pending, err := storages.MirrorRepository.CountByStatus(ctx, models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	require.NoError(t, storages.MirrorRepository.Remove(ctx, models.EntityMemo, memo.ID))
	pending, err = storages.MirrorRepository.CountByStatus(ctx, models.StatusPending)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestLocalQueueRepository_FIFOAndRetry(t *testing.T) {
	storages := newTestClientStorages(t)
	ctx := context.Background()

	memo := testMemo()
	first := models.OfflineChange{
		ID:              "change-1",
		Operation:       models.OpCreate,
		Entity:          models.EntityMemo,
		Payload:         models.MemoPayload(memo),
		ClientTimestamp: time.Now(),
	}
	second := first
	second.ID = "change-2"
	second.Operation = models.OpUpdate

	require.NoError(t, storages.QueueRepository.Enqueue(ctx, first))
	require.NoError(t, storages.QueueRepository.Enqueue(ctx, second))

	depth, err := storages.QueueRepository.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	pending, err := storages.QueueRepository.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "change-1", pending[0].ID)
	assert.Equal(t, "change-2", pending[1].ID)
	assert.Equal(t, memo.Title, pending[0].Payload.Memo.Title)

	count, err := storages.QueueRepository.IncrementRetry(ctx, "change-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = storages.QueueRepository.IncrementRetry(ctx, "change-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, storages.QueueRepository.Remove(ctx, "change-1"))
	pending, err = storages.QueueRepository.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "change-2", pending[0].ID)
}

func TestLocalSyncStateRepository_CursorAndSession(t *testing.T) {
	storages := newTestClientStorages(t)
	ctx := context.Background()

	cursor, err := storages.SyncStateRepository.GetCursor(ctx)
	require.NoError(t, err)
	assert.True(t, cursor.IsZero())

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, storages.SyncStateRepository.SetCursor(ctx, now))

	cursor, err = storages.SyncStateRepository.GetCursor(ctx)
	require.NoError(t, err)
	assert.True(t, cursor.Equal(now))

	_, _, err = storages.SyncStateRepository.GetSession(ctx)
	assert.ErrorIs(t, err, ErrLocalSessionNotFound)

	require.NoError(t, storages.SyncStateRepository.SaveSession(ctx, 7, "jwt-token"))
	userID, token, err := storages.SyncStateRepository.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
	assert.Equal(t, "jwt-token", token)
}
