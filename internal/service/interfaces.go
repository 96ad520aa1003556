// Package service holds the server-side business logic: account management
// and the sync protocol (pull, push, conflict resolution, diagnostics).
package service

import (
	"context"
	"time"

	"github.com/mkamenev/memobox/models"
)

// AuthService handles registration, credential checks and token issuance.
type AuthService interface {
	// RegisterUser creates a new account. The plaintext password is hashed
	// with bcrypt before it reaches the repository.
	RegisterUser(ctx context.Context, user models.User) (models.User, error)

	// Login verifies credentials and returns the stored account.
	Login(ctx context.Context, user models.User) (models.User, error)

	// CreateToken issues a signed JWT for the given user.
	CreateToken(ctx context.Context, user models.User) (models.Token, error)

	// ValidateToken parses and verifies a signed JWT.
	ValidateToken(ctx context.Context, signedToken string) (models.Token, error)
}

// SyncService implements the server side of the sync protocol.
type SyncService interface {
	// Pull returns every record changed after since, tombstone ids, the
	// user's open conflicts and the server timestamp the client should
	// adopt as its next cursor. A zero since returns the full live state.
	Pull(ctx context.Context, userID int64, since time.Time) (models.PullResponse, error)

	// Push applies a batch of offline changes sequentially. One failed or
	// conflicted change never aborts the rest of the batch.
	Push(ctx context.Context, userID int64, req models.PushRequest) (models.PushResult, error)

	// Resolve applies explicit user decisions to parked conflicts.
	Resolve(ctx context.Context, userID int64, resolutions []models.ConflictResolution) (models.ResolveResponse, error)

	// AutoResolve re-runs the three-way merge over every parked
	// version-mismatch conflict and applies the ones that now merge
	// cleanly.
	AutoResolve(ctx context.Context, userID int64) (models.ResolveResponse, error)

	// Status returns the per-record diagnostics view.
	Status(ctx context.Context, userID int64) (models.StatusResponse, error)
}
