// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package models

import "time"

// Memo is a single note-like record in the user's knowledge base.
// It is the primary synchronized entity: every field below the business
// payload (SyncVersion, Deleted, UpdatedAt) belongs to the version ledger
// and is maintained exclusively by the sync protocol.
type Memo struct {
	// ID is the stable record identifier. It is generated on the client
	// (UUIDv7) so that records created offline already carry their final
	// identity; the server accepts client-supplied ids on first push.
	ID string `json:"id"`

	// UserID is the owner of the memo.
	UserID int64 `json:"user_id"`

	// Title is the short display title of the memo.
	Title string `json:"title"`

	// Content is the memo body.
	Content string `json:"content"`

	// Tags is the free-form label set attached to the memo.
	// Stored as a JSON array in both the server ledger and the client mirror.
	Tags []string `json:"tags,omitempty"`

	// CategoryID references the category the memo belongs to, if any.
	CategoryID *string `json:"category_id,omitempty"`

	// CreatedAt is the timestamp when the record was first persisted.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last accepted mutation.
	// Server-authoritative once the record has been synced.
	UpdatedAt time.Time `json:"updated_at"`

	// SyncVersion is the monotonic per-record version counter.
	// It starts at 1 and is incremented exactly once per accepted mutation;
	// values are never reused.
	SyncVersion int64 `json:"sync_version"`

	// Deleted is the soft-delete tombstone. Deleted records are never
	// physically removed from the ledger so the deletion can propagate
	// to every replica.
	Deleted bool `json:"deleted"`
}

// TableName returns the name of the database table
// associated with the Memo model.
func (m *Memo) TableName() string {
	return "memos"
}

// MemoSyncFields is the fixed set of business fields the conflict resolver
// compares when two replicas diverge on the same memo.
var MemoSyncFields = []string{"title", "content", "tags", "category_id"}
