// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package models

import "time"

// Operation is the kind of mutation carried by an offline change.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Valid reports whether op names a known operation.
func (op Operation) Valid() bool {
	return op == OpCreate || op == OpUpdate || op == OpDelete
}

// SyncStatus is the client-mirror state of a single record.
type SyncStatus string

const (
	// StatusSynced means the mirror copy matches the last acknowledged
	// server state.
	StatusSynced SyncStatus = "synced"

	// StatusPending means a local mutation has been applied optimistically
	// and is waiting in the offline change queue.
	StatusPending SyncStatus = "pending"

	// StatusConflict means the server flagged divergence; the record stays
	// in this state until the user applies an explicit resolution.
	StatusConflict SyncStatus = "conflict"
)

// OfflineChange is one not-yet-acknowledged local mutation. Changes are
// owned by the Local Mirror until the server acknowledges them: applied
// cleanly → removed; conflicted → removed and replaced by a Conflict;
// failed → retried on the next sync attempt up to a fixed cap.
type OfflineChange struct {
	// ID identifies the change itself (client-generated UUIDv7), not the
	// record it mutates. Used to correlate per-change errors in a push result.
	ID string `json:"id"`

	// Operation is the mutation kind.
	Operation Operation `json:"operation"`

	// Entity is the record type the change applies to. It duplicates
	// Payload.Entity so a change row is self-describing without decoding
	// the payload.
	Entity EntityType `json:"entity"`

	// Payload is the full record as the client last saw it, including the
	// observed SyncVersion used for the optimistic-concurrency check.
	Payload RecordPayload `json:"payload"`

	// ClientTimestamp is the wall-clock time of the local mutation.
	ClientTimestamp time.Time `json:"client_timestamp"`

	// RetryCount is how many sync attempts have already failed to apply
	// this change.
	RetryCount int `json:"retry_count"`
}

// PushRequest is the body of POST /api/sync/batch. Changes are applied
// sequentially in the order given: later changes may depend on earlier ones
// (create-then-update of the same id).
type PushRequest struct {
	Changes []OfflineChange `json:"changes"`
}

// ChangeError reports a single change that could not be applied. The rest of
// the batch is unaffected.
type ChangeError struct {
	ChangeID string `json:"change_id"`
	Message  string `json:"message"`
}

// PushResult summarizes a batch apply.
type PushResult struct {
	// Processed counts changes applied cleanly (including idempotent
	// delete no-ops).
	Processed int `json:"processed"`

	// Conflicts lists divergences that need user arbitration. A conflicted
	// change is not an error: it is parked server-side until resolved.
	Conflicts []Conflict `json:"conflicts"`

	// Errors lists per-change failures (validation, ownership, not-found).
	Errors []ChangeError `json:"errors"`
}

// Clean reports whether every change in the batch applied without conflicts
// or errors. The handler maps this to 200 vs 207.
func (r PushResult) Clean() bool {
	return len(r.Conflicts) == 0 && len(r.Errors) == 0
}

// PullResponse is the body of GET /api/sync. A record that was updated and
// then tombstoned inside the window appears only in the deleted-id lists.
type PullResponse struct {
	UpdatedMemos       []Memo     `json:"updated_memos"`
	DeletedMemoIDs     []string   `json:"deleted_memo_ids"`
	UpdatedCategories  []Category `json:"updated_categories"`
	DeletedCategoryIDs []string   `json:"deleted_category_ids"`

	// Conflicts are the user's open conflicts, so a replica that missed the
	// push response still learns about them.
	Conflicts []Conflict `json:"conflicts"`

	// LastSyncTimestamp is the server clock reading the client should adopt
	// as its next pull cursor, but only after the pull completed cleanly.
	LastSyncTimestamp time.Time `json:"last_sync_timestamp"`
}

// EntityStatus is one row of the diagnostics surface (GET /api/sync/status).
type EntityStatus struct {
	Entity       EntityType `json:"entity"`
	ID           string     `json:"id"`
	SyncVersion  int64      `json:"sync_version"`
	LastSyncAt   time.Time  `json:"last_sync_at"`
	HasConflicts bool       `json:"has_conflicts"`
}

// StatusResponse is the body of GET /api/sync/status. PendingChanges is the
// server-side count of open conflicts; the client CLI adds its local queue
// depth on top when displaying status.
type StatusResponse struct {
	Entities       []EntityStatus `json:"entities"`
	PendingChanges int            `json:"pending_changes"`
}
