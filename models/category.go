// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package models

import "time"

// Category groups memos. Categories are synchronized with the same version
// ledger semantics as memos.
type Category struct {
	// ID is the stable, client-generated record identifier (UUIDv7).
	ID string `json:"id"`

	// UserID is the owner of the category.
	UserID int64 `json:"user_id"`

	// Name is the display name of the category.
	Name string `json:"name"`

	// Color is an optional presentation hint (hex string, e.g. "#ff8800").
	Color string `json:"color,omitempty"`

	// Position orders categories in listings.
	Position int `json:"position"`

	// CreatedAt is the timestamp when the record was first persisted.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last accepted mutation.
	UpdatedAt time.Time `json:"updated_at"`

	// SyncVersion is the monotonic per-record version counter (starts at 1).
	SyncVersion int64 `json:"sync_version"`

	// Deleted is the soft-delete tombstone.
	Deleted bool `json:"deleted"`
}

// TableName returns the name of the database table
// associated with the Category model.
func (c *Category) TableName() string {
	return "categories"
}

// CategorySyncFields is the fixed set of business fields the conflict
// resolver compares for categories.
var CategorySyncFields = []string{"name", "color", "position"}
