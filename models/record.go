// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package models

import (
	"errors"
	"time"
)

// EntityType discriminates the kinds of records tracked by the sync engine.
type EntityType string

const (
	EntityMemo     EntityType = "memo"
	EntityCategory EntityType = "category"
)

// Valid reports whether e names a tracked entity type.
func (e EntityType) Valid() bool {
	return e == EntityMemo || e == EntityCategory
}

// ErrPayloadMismatch is returned when a RecordPayload's discriminant does not
// match the populated variant (or no variant is populated at all).
var ErrPayloadMismatch = errors.New("record payload does not match its entity type")

// RecordPayload is the tagged union carried by offline changes, conflicts,
// and audit snapshots. Exactly one of Memo or Category is populated, selected
// by the Entity discriminant. Code consuming a RecordPayload must switch on
// Entity exhaustively rather than inspecting the pointers directly.
type RecordPayload struct {
	Entity   EntityType `json:"entity"`
	Memo     *Memo      `json:"memo,omitempty"`
	Category *Category  `json:"category,omitempty"`
}

// MemoPayload wraps m into a RecordPayload.
func MemoPayload(m Memo) RecordPayload {
	return RecordPayload{Entity: EntityMemo, Memo: &m}
}

// CategoryPayload wraps c into a RecordPayload.
func CategoryPayload(c Category) RecordPayload {
	return RecordPayload{Entity: EntityCategory, Category: &c}
}

// Check verifies that the discriminant and the populated variant agree.
func (p RecordPayload) Check() error {
	switch p.Entity {
	case EntityMemo:
		if p.Memo == nil || p.Category != nil {
			return ErrPayloadMismatch
		}
		return nil
	case EntityCategory:
		if p.Category == nil || p.Memo != nil {
			return ErrPayloadMismatch
		}
		return nil
	default:
		return ErrPayloadMismatch
	}
}

// RecordID returns the id of the wrapped record, or "" when the payload is
// malformed.
func (p RecordPayload) RecordID() string {
	switch p.Entity {
	case EntityMemo:
		if p.Memo != nil {
			return p.Memo.ID
		}
	case EntityCategory:
		if p.Category != nil {
			return p.Category.ID
		}
	}
	return ""
}

// SyncVersion returns the ledger version the client observed for the wrapped
// record (0 for a record that has never been synced).
func (p RecordPayload) SyncVersion() int64 {
	switch p.Entity {
	case EntityMemo:
		if p.Memo != nil {
			return p.Memo.SyncVersion
		}
	case EntityCategory:
		if p.Category != nil {
			return p.Category.SyncVersion
		}
	}
	return 0
}

// UpdatedAt returns the wrapped record's last-modification timestamp.
func (p RecordPayload) UpdatedAt() time.Time {
	switch p.Entity {
	case EntityMemo:
		if p.Memo != nil {
			return p.Memo.UpdatedAt
		}
	case EntityCategory:
		if p.Category != nil {
			return p.Category.UpdatedAt
		}
	}
	return time.Time{}
}

// Deleted reports whether the wrapped record carries a tombstone.
func (p RecordPayload) Deleted() bool {
	switch p.Entity {
	case EntityMemo:
		if p.Memo != nil {
			return p.Memo.Deleted
		}
	case EntityCategory:
		if p.Category != nil {
			return p.Category.Deleted
		}
	}
	return false
}

// SetOwner stamps userID on the wrapped record. Handlers call this so a
// client can never write into another user's ledger by forging the payload.
func (p *RecordPayload) SetOwner(userID int64) {
	switch p.Entity {
	case EntityMemo:
		if p.Memo != nil {
			p.Memo.UserID = userID
		}
	case EntityCategory:
		if p.Category != nil {
			p.Category.UserID = userID
		}
	}
}
