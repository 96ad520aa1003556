// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

// Package adapter provides the client-side transport to the memobox server.
//
// The primary abstraction is [ServerAdapter], which decouples the client
// service layer from the wire protocol. The package ships an HTTP/REST
// implementation ([NewHTTPServerAdapter]) built on resty with bounded
// retries for transient transport failures.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrConflict] for 409, [ErrUnauthorized] for 401).
package adapter

import (
	"context"
	"time"

	"github.com/mkamenev/memobox/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter defines transport-agnostic communication with the memobox
// server. Implementations own serialisation, bearer-token management, and
// mapping transport-level failures to the sentinel errors of this package.
type ServerAdapter interface {
	// SetToken stores the bearer token attached to all subsequent
	// authenticated requests.
	SetToken(token string)

	// Token returns the bearer token currently held by the adapter, or an
	// empty string if none has been set.
	Token() string

	// Register creates an account and returns the session token issued for
	// it. The token is also stored via SetToken.
	Register(ctx context.Context, user models.User) (models.Token, error)

	// Login authenticates and returns the session token. The token is also
	// stored via SetToken.
	Login(ctx context.Context, user models.User) (models.Token, error)

	// Pull fetches every server-side change after since. A zero since asks
	// for the full live state.
	Pull(ctx context.Context, since time.Time) (models.PullResponse, error)

	// Push uploads a batch of offline changes. Both a fully clean batch and
	// a partially conflicted one return a nil error; the split is carried
	// inside the result.
	Push(ctx context.Context, request models.PushRequest) (models.PushResult, error)

	// Resolve submits user decisions for parked conflicts.
	Resolve(ctx context.Context, resolutions []models.ConflictResolution) (models.ResolveResponse, error)

	// AutoResolve asks the server to re-run the field merge over every
	// parked conflict of the user.
	AutoResolve(ctx context.Context) (models.ResolveResponse, error)

	// Status fetches the per-record diagnostics surface.
	Status(ctx context.Context) (models.StatusResponse, error)
}
