// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package models

import "time"

// SyncAuditEntry is one row of the append-only sync audit log. The protocol
// handler writes exactly one entry per successful apply; nothing ever mutates
// an entry afterwards except the retention sweep, which removes whole rows by
// age, and conflict resolution, which flips ConflictResolved on the entry of
// the version that resolved the conflict.
type SyncAuditEntry struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Entity    EntityType `json:"entity"`
	EntityID  string     `json:"entity_id"`
	Operation Operation  `json:"operation"`

	// SyncVersion is the ledger version produced by the apply this entry
	// records.
	SyncVersion int64 `json:"sync_version"`

	// Snapshot is the full record state after the apply. It is what makes a
	// real three-way merge possible: the entry at version
	// min(localVersion, serverVersion)-1 is the best-effort common ancestor
	// of two diverging replicas.
	Snapshot RecordPayload `json:"snapshot"`

	ConflictResolved bool      `json:"conflict_resolved"`
	Timestamp        time.Time `json:"timestamp"`
}

// TableName returns the name of the database table
// associated with the SyncAuditEntry model.
func (e *SyncAuditEntry) TableName() string {
	return "sync_audit"
}
