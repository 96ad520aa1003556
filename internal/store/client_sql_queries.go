package store

// SQLite statements for the client mirror, offline queue and sync state.
const (
	upsertMirrorMemoSQL = `
		INSERT INTO mirror_memos (id, title, content, tags, category_id, created_at, updated_at, sync_version, deleted, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			tags = excluded.tags,
			category_id = excluded.category_id,
			updated_at = excluded.updated_at,
			sync_version = excluded.sync_version,
			deleted = excluded.deleted,
			sync_status = excluded.sync_status;`

	upsertMirrorCategorySQL = `
		INSERT INTO mirror_categories (id, name, color, position, created_at, updated_at, sync_version, deleted, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			position = excluded.position,
			updated_at = excluded.updated_at,
			sync_version = excluded.sync_version,
			deleted = excluded.deleted,
			sync_status = excluded.sync_status;`

	getMirrorMemoSQL = `
		SELECT id, title, content, tags, category_id, created_at, updated_at, sync_version, deleted, sync_status
		FROM mirror_memos
		WHERE id = ? AND deleted = 0;`

	getMirrorCategorySQL = `
		SELECT id, name, color, position, created_at, updated_at, sync_version, deleted, sync_status
		FROM mirror_categories
		WHERE id = ? AND deleted = 0;`

	listMirrorMemosSQL = `
		SELECT id, title, content, tags, category_id, created_at, updated_at, sync_version, deleted, sync_status
		FROM mirror_memos
		WHERE deleted = 0
		ORDER BY updated_at DESC;`

	listMirrorCategoriesSQL = `
		SELECT id, name, color, position, created_at, updated_at, sync_version, deleted, sync_status
		FROM mirror_categories
		WHERE deleted = 0
		ORDER BY position ASC, name ASC;`

	markMirrorDeletedSQL = `UPDATE %s SET deleted = 1, sync_status = ? WHERE id = ?;`

	removeMirrorRowSQL = `DELETE FROM %s WHERE id = ?;`

	setMirrorStatusSQL = `UPDATE %s SET sync_status = ? WHERE id = ?;`

	countMirrorStatusSQL = `
		SELECT
			(SELECT COUNT(*) FROM mirror_memos WHERE sync_status = ?) +
			(SELECT COUNT(*) FROM mirror_categories WHERE sync_status = ?);`

	enqueueChangeSQL = `
		INSERT INTO offline_queue (change_id, operation, entity, payload, client_ts, retry_count)
		VALUES (?, ?, ?, ?, ?, ?);`

	pendingChangesSQL = `
		SELECT change_id, operation, entity, payload, client_ts, retry_count
		FROM offline_queue
		ORDER BY seq ASC;`

	removeChangeSQL = `DELETE FROM offline_queue WHERE change_id = ?;`

	incrementRetrySQL = `UPDATE offline_queue SET retry_count = retry_count + 1 WHERE change_id = ?;`

	retryCountSQL = `SELECT retry_count FROM offline_queue WHERE change_id = ?;`

	queueDepthSQL = `SELECT COUNT(*) FROM offline_queue;`

	getSyncStateSQL = `SELECT value FROM sync_state WHERE key = ?;`

	setSyncStateSQL = `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value;`
)
