// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

// Package store implements the server-side persistence layer: the version
// ledger (memos and categories with monotonic sync versions and tombstones),
// the append-only sync audit log, the parked-conflict table, and user
// accounts. All repositories speak PostgreSQL through database/sql with the
// pgx driver.
package store

import (
	"context"
	"time"

	"github.com/mkamenev/memobox/models"
)

// UserRepository persists user accounts.
type UserRepository interface {
	// CreateUser inserts a new user and returns it with UserID assigned.
	// Returns ErrLoginAlreadyExists when the login is taken.
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// FindUserByLogin returns the user with the given login, including the
	// stored password hash. Returns ErrNoUserWasFound when absent.
	FindUserByLogin(ctx context.Context, login string) (models.User, error)
}

// LedgerRepository is the version ledger over memos and categories.
//
// Every accepted mutation bumps the record's sync version by exactly one:
// Insert writes version 1, Apply and Tombstone increment atomically and only
// when the caller's observed version still matches the stored one. Records
// are never physically removed; deletes set the tombstone flag.
type LedgerRepository interface {
	// Get returns the current ledger state of one record, tombstoned or not.
	// Returns ErrRecordNotFound when the id has never been seen.
	Get(ctx context.Context, entity models.EntityType, userID int64, id string) (models.RecordPayload, error)

	// Insert writes a brand-new record at sync version 1.
	// Returns ErrRecordExists when the id is already present.
	Insert(ctx context.Context, payload models.RecordPayload, now time.Time) (models.RecordPayload, error)

	// Apply overwrites the record's business fields, clears any tombstone,
	// stamps updated_at and bumps the sync version, all guarded by
	// WHERE sync_version = observed. Returns ErrVersionConflict when the
	// guard matched no row.
	Apply(ctx context.Context, payload models.RecordPayload, observed int64, now time.Time) (models.RecordPayload, error)

	// Tombstone soft-deletes the record under the same optimistic guard.
	Tombstone(ctx context.Context, entity models.EntityType, userID int64, id string, observed int64, now time.Time) (models.RecordPayload, error)

	// ListMemosSince returns the user's live memos changed after since,
	// oldest first. A zero since means "everything" (initial sync).
	ListMemosSince(ctx context.Context, userID int64, since time.Time) ([]models.Memo, error)

	// ListMemoTombstonesSince returns ids of memos tombstoned after since.
	ListMemoTombstonesSince(ctx context.Context, userID int64, since time.Time) ([]string, error)

	// ListCategoriesSince returns the user's live categories changed after
	// since, oldest first.
	ListCategoriesSince(ctx context.Context, userID int64, since time.Time) ([]models.Category, error)

	// ListCategoryTombstonesSince returns ids of categories tombstoned
	// after since.
	ListCategoryTombstonesSince(ctx context.Context, userID int64, since time.Time) ([]string, error)

	// ListStates returns one diagnostics row per live record, with the
	// conflict flag joined in from the conflict table.
	ListStates(ctx context.Context, userID int64) ([]models.EntityStatus, error)
}

// AuditRepository is the append-only sync audit log.
type AuditRepository interface {
	// Append writes one entry. Entries are immutable afterwards except for
	// the ConflictResolved flag.
	Append(ctx context.Context, entry models.SyncAuditEntry) error

	// GetAtVersion returns the entry recorded for the given record at the
	// given sync version. Returns ErrAuditEntryNotFound when the entry was
	// never written or has been swept.
	GetAtVersion(ctx context.Context, userID int64, entity models.EntityType, entityID string, version int64) (models.SyncAuditEntry, error)

	// DeleteOlderThan removes entries with a timestamp before cutoff,
	// except each record's newest entry, and returns how many were removed.
	// The newest entry stays so three-way merges keep an ancestor candidate.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ConflictRepository stores conflicts parked for user arbitration.
type ConflictRepository interface {
	// Upsert stores the conflict, replacing any older conflict on the same
	// record.
	Upsert(ctx context.Context, userID int64, conflict models.Conflict) error

	// Get returns one conflict by its composite id.
	// Returns ErrConflictNotFound when absent.
	Get(ctx context.Context, userID int64, conflictID string) (models.Conflict, error)

	// ListByUser returns the user's open conflicts, oldest first.
	ListByUser(ctx context.Context, userID int64) ([]models.Conflict, error)

	// Delete removes a resolved conflict.
	Delete(ctx context.Context, userID int64, conflictID string) error
}

// ErrorClassification tells callers whether a low-level database error is
// worth retrying.
type ErrorClassification int

const (
	Unknown ErrorClassification = iota
	Retryable
	NonRetryable
)

// ErrorClassifier classifies driver errors into retryability classes.
type ErrorClassifier interface {
	Classify(err error) ErrorClassification
}
