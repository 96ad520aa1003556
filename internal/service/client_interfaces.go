// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package service

import (
	"context"

	"github.com/mkamenev/memobox/models"
)

// ClientAuthService manages the client's server session.
type ClientAuthService interface {
	// Register creates an account on the server and persists the issued
	// session locally.
	Register(ctx context.Context, user models.User) error

	// Login authenticates against the server and persists the issued
	// session locally.
	Login(ctx context.Context, user models.User) error

	// RestoreSession loads a previously persisted session from the local
	// database and arms the transport with its token. Returns
	// [store.ErrLocalSessionNotFound] via the repository when the client
	// has never logged in.
	RestoreSession(ctx context.Context) (int64, error)
}

// ClientRecordsService is the local-first CRUD surface over memos and
// categories. Every mutation lands in the mirror immediately, is stamped
// pending, and is queued for the next sync; reads never touch the network.
type ClientRecordsService interface {
	CreateMemo(ctx context.Context, memo models.Memo) (models.Memo, error)
	UpdateMemo(ctx context.Context, memo models.Memo) (models.Memo, error)
	DeleteMemo(ctx context.Context, id string) error
	GetMemo(ctx context.Context, id string) (models.Memo, models.SyncStatus, error)
	ListMemos(ctx context.Context) ([]models.Memo, error)

	CreateCategory(ctx context.Context, category models.Category) (models.Category, error)
	UpdateCategory(ctx context.Context, category models.Category) (models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// SyncReport summarizes one completed sync round.
type SyncReport struct {
	// Pushed counts offline changes the server applied cleanly.
	Pushed int

	// Conflicted counts changes the server parked as conflicts.
	Conflicted int

	// Dropped counts changes abandoned after exhausting the retry cap.
	Dropped int

	// Applied counts records written into the mirror from the pull.
	Applied int

	// OpenConflicts is the number of server-side conflicts awaiting
	// arbitration after this round.
	OpenConflicts int
}

// ClientSyncService drives one full push-then-pull round against the server.
type ClientSyncService interface {
	// SyncOnce pushes the offline queue, pulls server changes into the
	// mirror and advances the pull cursor. Safe to call concurrently; an
	// in-flight round makes later callers wait.
	SyncOnce(ctx context.Context) (SyncReport, error)

	// Resolve forwards user conflict decisions to the server and refreshes
	// the affected mirror rows on the next pull.
	Resolve(ctx context.Context, resolutions []models.ConflictResolution) (models.ResolveResponse, error)

	// AutoResolve asks the server to merge every parked conflict it can.
	AutoResolve(ctx context.Context) (models.ResolveResponse, error)

	// Status combines the server diagnostics view with the local queue
	// depth.
	Status(ctx context.Context) (models.StatusResponse, int, error)
}

// ClientSyncOrchestrator schedules sync rounds: periodically, and shortly
// after bursts of local writes.
type ClientSyncOrchestrator interface {
	// Start launches the background scheduling loop. Idempotent.
	Start(ctx context.Context)

	// NotifyLocalChange signals that a local mutation happened; the
	// orchestrator debounces bursts into a single near-term sync round.
	NotifyLocalChange()

	// NotifyOnline signals that connectivity came back; the orchestrator
	// starts a sync round immediately instead of waiting for the next tick.
	NotifyOnline()

	// Stop cancels the loop and waits for any in-flight round to finish.
	Stop()
}
