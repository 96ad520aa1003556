package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	return &DB{
		DB:         raw,
		classifier: NewPostgresErrorClassifier(),
		logger:     logger.Nop(),
	}, mock
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation}
}

func testMemo() models.Memo {
	return models.Memo{
		ID:          "0198a6c2-7d8a-7bbb-9c7e-000000000001",
		UserID:      7,
		Title:       "groceries",
		Content:     "milk, eggs",
		Tags:        []string{"home"},
		SyncVersion: 3,
	}
}

func memoRows(memo models.Memo) *sqlmock.Rows {
	return sqlmock.NewRows(memoColumns).
		AddRow(memo.ID, memo.UserID, memo.Title, memo.Content, []byte(`["home"]`), nil,
			memo.CreatedAt, memo.UpdatedAt, memo.SyncVersion, memo.Deleted)
}

func TestSQLLedgerRepository_ApplyBumpsVersionByOne(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLLedgerRepository(db, logger.Nop())

	memo := testMemo()
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(applyMemoSQL)).
		WithArgs(memo.Title, memo.Content, []byte(`["home"]`), nil, now, memo.UserID, memo.ID, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.Apply(context.Background(), models.MemoPayload(memo), 3, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), applied.SyncVersion())
	assert.False(t, applied.Deleted())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerRepository_ApplyVersionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLLedgerRepository(db, logger.Nop())

	memo := testMemo()

	mock.ExpectExec(regexp.QuoteMeta(applyMemoSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Apply(context.Background(), models.MemoPayload(memo), 2, time.Now())
	assert.ErrorIs(t, err, ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerRepository_InsertDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLLedgerRepository(db, logger.Nop())

	memo := testMemo()

	mock.ExpectExec(regexp.QuoteMeta(insertMemoSQL)).
		WillReturnError(uniqueViolation())

	_, err := repo.Insert(context.Background(), models.MemoPayload(memo), time.Now())
	assert.ErrorIs(t, err, ErrRecordExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerRepository_InsertStartsAtVersionOne(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLLedgerRepository(db, logger.Nop())

	memo := testMemo()
	memo.SyncVersion = 0

	mock.ExpectExec(regexp.QuoteMeta(insertMemoSQL)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.Insert(context.Background(), models.MemoPayload(memo), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted.SyncVersion())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerRepository_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLLedgerRepository(db, logger.Nop())

	mock.ExpectQuery(regexp.QuoteMeta(selectMemoSQL)).
		WithArgs(int64(7), "missing").
		WillReturnRows(sqlmock.NewRows(memoColumns))

	_, err := repo.Get(context.Background(), models.EntityMemo, 7, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLLedgerRepository(db, logger.Nop())

	memo := testMemo()

	mock.ExpectQuery(regexp.QuoteMeta(selectMemoSQL)).
		WithArgs(memo.UserID, memo.ID).
		WillReturnRows(memoRows(memo))

	got, err := repo.Get(context.Background(), models.EntityMemo, memo.UserID, memo.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Memo)
	assert.Equal(t, memo.Title, got.Memo.Title)
	assert.Equal(t, []string{"home"}, got.Memo.Tags)
	assert.Equal(t, int64(3), got.SyncVersion())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerRepository_TombstoneVersionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLLedgerRepository(db, logger.Nop())

	mock.ExpectExec(regexp.QuoteMeta(tombstoneMemoSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Tombstone(context.Background(), models.EntityMemo, 7, "m1", 5, time.Now())
	assert.ErrorIs(t, err, ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerRepository_ListMemosSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSQLLedgerRepository(db, logger.Nop())

	memo := testMemo()
	since := time.Now().Add(-time.Hour)

	query, _, err := buildListSince("memos", memoColumns, memo.UserID, since)
	require.NoError(t, err)
	assert.Contains(t, query, "updated_at >")

	// squirrel sorts Eq keys, so "deleted" binds before "user_id".
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(false, memo.UserID, since).
		WillReturnRows(memoRows(memo))

	memos, err := repo.ListMemosSince(context.Background(), memo.UserID, since)
	require.NoError(t, err)
	require.Len(t, memos, 1)
	assert.Equal(t, memo.ID, memos[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerRepository_ListMemosSinceZeroDropsFilter(t *testing.T) {
	query, args, err := buildListSince("memos", memoColumns, 7, time.Time{})
	require.NoError(t, err)
	assert.NotContains(t, query, "updated_at >")
	assert.Len(t, args, 2)
}
