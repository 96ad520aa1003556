package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/models"
)

func TestSQLAuditRepository_AppendAndGetAtVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLAuditRepository(db, logger.Nop())

	memo := testMemo()
	entry := models.SyncAuditEntry{
		UserID:      memo.UserID,
		Entity:      models.EntityMemo,
		EntityID:    memo.ID,
		Operation:   models.OpUpdate,
		SyncVersion: 3,
		Snapshot:    models.MemoPayload(memo),
		Timestamp:   time.Now(),
	}
	snapshot, err := json.Marshal(entry.Snapshot)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(insertAuditSQL)).
		WithArgs(entry.UserID, entry.Entity, entry.EntityID, entry.Operation,
			entry.SyncVersion, snapshot, false, entry.Timestamp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Append(context.Background(), entry))

	mock.ExpectQuery(regexp.QuoteMeta(selectAuditAtVersionSQL)).
		WithArgs(entry.UserID, entry.Entity, entry.EntityID, entry.SyncVersion).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "entity", "entity_id", "operation", "sync_version", "snapshot", "conflict_resolved", "ts"}).
			AddRow(1, entry.UserID, entry.Entity, entry.EntityID, entry.Operation, entry.SyncVersion, snapshot, false, entry.Timestamp))

	got, err := repo.GetAtVersion(context.Background(), entry.UserID, entry.Entity, entry.EntityID, entry.SyncVersion)
	require.NoError(t, err)
	require.NotNil(t, got.Snapshot.Memo)
	assert.Equal(t, memo.Title, got.Snapshot.Memo.Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLAuditRepository_GetAtVersionMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLAuditRepository(db, logger.Nop())

	mock.ExpectQuery(regexp.QuoteMeta(selectAuditAtVersionSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetAtVersion(context.Background(), 7, models.EntityMemo, "m1", 2)
	assert.ErrorIs(t, err, ErrAuditEntryNotFound)
}

func TestSQLAuditRepository_DeleteOlderThan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLAuditRepository(db, logger.Nop())

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta(deleteAuditOlderThanSQL)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	removed, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(12), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConflictRepository_UpsertAndGet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLConflictRepository(db, logger.Nop())

	memo := testMemo()
	conflict := models.Conflict{
		ID:                models.ConflictID(models.EntityMemo, memo.ID),
		Entity:            models.EntityMemo,
		EntityID:          memo.ID,
		Type:              models.ConflictVersionMismatch,
		ConflictingFields: []string{"title"},
		Local:             models.MemoPayload(memo),
		Server:            models.MemoPayload(memo),
		LocalSyncVersion:  3,
		ServerSyncVersion: 5,
		DetectedAt:        time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta(upsertConflictSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Upsert(context.Background(), memo.UserID, conflict))

	fields, _ := json.Marshal(conflict.ConflictingFields)
	payload, _ := json.Marshal(conflict.Local)
	mock.ExpectQuery(regexp.QuoteMeta(selectConflictSQL)).
		WithArgs(memo.UserID, conflict.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "entity", "entity_id", "conflict_type", "conflicting_fields", "local_payload", "server_payload", "local_sync_version", "server_sync_version", "detected_at"}).
			AddRow(conflict.ID, conflict.Entity, conflict.EntityID, conflict.Type, fields, payload, payload, conflict.LocalSyncVersion, conflict.ServerSyncVersion, conflict.DetectedAt))

	got, err := repo.Get(context.Background(), memo.UserID, conflict.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConflictVersionMismatch, got.Type)
	assert.Equal(t, []string{"title"}, got.ConflictingFields)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConflictRepository_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLConflictRepository(db, logger.Nop())

	mock.ExpectExec(regexp.QuoteMeta(deleteConflictSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 7, "memo:missing")
	assert.ErrorIs(t, err, ErrConflictNotFound)
}

func TestSQLUserRepository_CreateUserDuplicateLogin(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLUserRepository(db, logger.Nop())

	mock.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
		WillReturnError(uniqueViolation())

	_, err := repo.CreateUser(context.Background(), models.User{Login: "alice", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrLoginAlreadyExists)
}

func TestSQLUserRepository_FindUserByLogin(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLUserRepository(db, logger.Nop())

	created := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByLoginSQL)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "login", "name", "password_hash", "created_at"}).
			AddRow(7, "alice", "Alice", "$2a$10$hash", created))

	user, err := repo.FindUserByLogin(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.UserID)
	assert.Equal(t, "$2a$10$hash", user.PasswordHash)

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByLoginSQL)).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err = repo.FindUserByLogin(context.Background(), "bob")
	assert.ErrorIs(t, err, ErrNoUserWasFound)
}
