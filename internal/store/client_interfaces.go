package store

import (
	"context"
	"time"

	"github.com/mkamenev/memobox/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// MirrorRepository is the client's full local copy of the user's records.
// Reads always hit the mirror; the sync engine reconciles it with the server
// in the background. Records carry a per-row sync status so the UI can show
// what is pending or conflicted.
type MirrorRepository interface {
	// Upsert writes the record into the mirror with the given status.
	Upsert(ctx context.Context, payload models.RecordPayload, status models.SyncStatus) error

	// Get returns one mirror record and its sync status.
	// Returns ErrRecordNotFound when absent or locally deleted.
	Get(ctx context.Context, entity models.EntityType, id string) (models.RecordPayload, models.SyncStatus, error)

	// ListMemos returns all live mirror memos, newest first.
	ListMemos(ctx context.Context) ([]models.Memo, error)

	// ListCategories returns all live mirror categories ordered by position.
	ListCategories(ctx context.Context) ([]models.Category, error)

	// MarkDeleted hides the record locally while the delete waits in the
	// offline queue.
	MarkDeleted(ctx context.Context, entity models.EntityType, id string) error

	// Remove drops the row entirely. Called when the server acknowledges a
	// delete or pulls a tombstone.
	Remove(ctx context.Context, entity models.EntityType, id string) error

	// SetStatus updates just the sync status of one record.
	SetStatus(ctx context.Context, entity models.EntityType, id string, status models.SyncStatus) error

	// CountByStatus counts mirror records in the given status.
	CountByStatus(ctx context.Context, status models.SyncStatus) (int, error)
}

// QueueRepository is the durable offline change queue. Changes leave the
// queue only when the server acknowledges them, conflicts them out, or the
// retry cap drops them.
type QueueRepository interface {
	// Enqueue appends one change in FIFO order.
	Enqueue(ctx context.Context, change models.OfflineChange) error

	// Pending returns all queued changes, oldest first.
	Pending(ctx context.Context) ([]models.OfflineChange, error)

	// Remove deletes a change by its change id.
	Remove(ctx context.Context, changeID string) error

	// IncrementRetry bumps the retry counter and returns the new value.
	IncrementRetry(ctx context.Context, changeID string) (int, error)

	// Depth returns the number of queued changes.
	Depth(ctx context.Context) (int, error)
}

// SyncStateRepository persists the pull cursor and the logged-in session
// across client restarts.
type SyncStateRepository interface {
	// GetCursor returns the last clean pull timestamp, zero when the client
	// has never completed a pull.
	GetCursor(ctx context.Context) (time.Time, error)

	// SetCursor advances the pull cursor.
	SetCursor(ctx context.Context, cursor time.Time) error

	// SaveSession stores the authenticated session.
	SaveSession(ctx context.Context, userID int64, token string) error

	// GetSession returns the stored session.
	// Returns ErrLocalSessionNotFound when the client has never logged in.
	GetSession(ctx context.Context) (int64, string, error)
}
