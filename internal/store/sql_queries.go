package store

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mkamenev/memobox/models"
)

// psql builds queries with $N placeholders for the pgx driver.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Fixed statements. Dynamic, filter-dependent queries are built with
// squirrel below.
const (
	insertUserSQL = `INSERT INTO users (login, name, password_hash, created_at)
VALUES ($1, $2, $3, $4)
RETURNING user_id`

	selectUserByLoginSQL = `SELECT user_id, login, name, password_hash, created_at
FROM users
WHERE login = $1`

	insertMemoSQL = `INSERT INTO memos (id, user_id, title, content, tags, category_id, created_at, updated_at, sync_version, deleted)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, FALSE)`

	applyMemoSQL = `UPDATE memos
SET title = $1, content = $2, tags = $3, category_id = $4, updated_at = $5, deleted = FALSE, sync_version = sync_version + 1
WHERE user_id = $6 AND id = $7 AND sync_version = $8`

	tombstoneMemoSQL = `UPDATE memos
SET deleted = TRUE, updated_at = $1, sync_version = sync_version + 1
WHERE user_id = $2 AND id = $3 AND sync_version = $4`

	selectMemoSQL = `SELECT id, user_id, title, content, tags, category_id, created_at, updated_at, sync_version, deleted
FROM memos
WHERE user_id = $1 AND id = $2`

	insertCategorySQL = `INSERT INTO categories (id, user_id, name, color, position, created_at, updated_at, sync_version, deleted)
VALUES ($1, $2, $3, $4, $5, $6, $7, 1, FALSE)`

	applyCategorySQL = `UPDATE categories
SET name = $1, color = $2, position = $3, updated_at = $4, deleted = FALSE, sync_version = sync_version + 1
WHERE user_id = $5 AND id = $6 AND sync_version = $7`

	tombstoneCategorySQL = `UPDATE categories
SET deleted = TRUE, updated_at = $1, sync_version = sync_version + 1
WHERE user_id = $2 AND id = $3 AND sync_version = $4`

	selectCategorySQL = `SELECT id, user_id, name, color, position, created_at, updated_at, sync_version, deleted
FROM categories
WHERE user_id = $1 AND id = $2`

	insertAuditSQL = `INSERT INTO sync_audit (user_id, entity, entity_id, operation, sync_version, snapshot, conflict_resolved, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	selectAuditAtVersionSQL = `SELECT id, user_id, entity, entity_id, operation, sync_version, snapshot, conflict_resolved, ts
FROM sync_audit
WHERE user_id = $1 AND entity = $2 AND entity_id = $3 AND sync_version = $4`

	deleteAuditOlderThanSQL = `DELETE FROM sync_audit AS a
WHERE a.ts < $1
  AND a.sync_version < (SELECT MAX(b.sync_version) FROM sync_audit AS b
                        WHERE b.user_id = a.user_id AND b.entity = a.entity AND b.entity_id = a.entity_id)`

	upsertConflictSQL = `INSERT INTO sync_conflicts (user_id, id, entity, entity_id, conflict_type, conflicting_fields, local_payload, server_payload, local_sync_version, server_sync_version, detected_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (user_id, id) DO UPDATE
SET conflict_type = EXCLUDED.conflict_type,
    conflicting_fields = EXCLUDED.conflicting_fields,
    local_payload = EXCLUDED.local_payload,
    server_payload = EXCLUDED.server_payload,
    local_sync_version = EXCLUDED.local_sync_version,
    server_sync_version = EXCLUDED.server_sync_version,
    detected_at = EXCLUDED.detected_at`

	selectConflictSQL = `SELECT id, entity, entity_id, conflict_type, conflicting_fields, local_payload, server_payload, local_sync_version, server_sync_version, detected_at
FROM sync_conflicts
WHERE user_id = $1 AND id = $2`

	selectConflictsByUserSQL = `SELECT id, entity, entity_id, conflict_type, conflicting_fields, local_payload, server_payload, local_sync_version, server_sync_version, detected_at
FROM sync_conflicts
WHERE user_id = $1
ORDER BY detected_at ASC`

	deleteConflictSQL = `DELETE FROM sync_conflicts WHERE user_id = $1 AND id = $2`
)

var (
	memoColumns     = []string{"id", "user_id", "title", "content", "tags", "category_id", "created_at", "updated_at", "sync_version", "deleted"}
	categoryColumns = []string{"id", "user_id", "name", "color", "position", "created_at", "updated_at", "sync_version", "deleted"}
)

// buildListSince selects live rows for one ledger table, optionally filtered
// by updated_at. A zero since drops the time filter entirely, which is the
// initial-sync case.
func buildListSince(table string, columns []string, userID int64, since time.Time) (string, []any, error) {
	q := psql.Select(columns...).
		From(table).
		Where(sq.Eq{"user_id": userID, "deleted": false}).
		OrderBy("updated_at ASC")
	if !since.IsZero() {
		q = q.Where(sq.Gt{"updated_at": since})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrSQLQueryBuild, err)
	}
	return query, args, nil
}

// buildListTombstonesSince selects ids of rows tombstoned after since.
func buildListTombstonesSince(table string, userID int64, since time.Time) (string, []any, error) {
	q := psql.Select("id").
		From(table).
		Where(sq.Eq{"user_id": userID, "deleted": true}).
		OrderBy("updated_at ASC")
	if !since.IsZero() {
		q = q.Where(sq.Gt{"updated_at": since})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrSQLQueryBuild, err)
	}
	return query, args, nil
}

// buildListStates joins one ledger table against the conflict table to
// produce the diagnostics rows for the status endpoint.
func buildListStates(table string, entity models.EntityType, userID int64) (string, []any, error) {
	q := psql.Select("r.id", "r.sync_version", "r.updated_at", "c.id IS NOT NULL AS has_conflict").
		From(table+" AS r").
		LeftJoin("sync_conflicts AS c ON c.user_id = r.user_id AND c.entity = ? AND c.entity_id = r.id", string(entity)).
		Where(sq.Eq{"r.user_id": userID, "r.deleted": false}).
		OrderBy("r.updated_at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrSQLQueryBuild, err)
	}
	return query, args, nil
}
