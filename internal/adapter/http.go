// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"

	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/utils"
	"github.com/mkamenev/memobox/models"
)

const (
	retryBaseDelay  = 200 * time.Millisecond
	retryMaxRetries = 3
)

type httpServerAdapter struct {
	client *resty.Client

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of
// [ServerAdapter]. It normalises and validates the base URL from
// adapterCfg.ServerURL and configures the underlying client with the
// resolved base URL and request timeout.
//
// Returns an error if adapterCfg.ServerURL is empty or cannot be parsed as
// a valid URL.
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter server url: %w", err)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(adapterCfg.RequestTimeout)

	return &httpServerAdapter{client: client, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [ServerAdapter]. It stores token (whitespace-trimmed)
// for use in the Authorization header of all subsequent requests.
func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token implements [ServerAdapter].
func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Register implements [ServerAdapter]. It POSTs the user credentials to
// POST /api/auth/register. On success the bearer token is extracted from the
// Authorization response header, the user id is read from the token's
// subject claim, and the token is stored via SetToken.
func (h *httpServerAdapter) Register(ctx context.Context, user models.User) (models.Token, error) {
	resp, err := h.send(ctx, func(ctx context.Context) (*resty.Response, error) {
		return h.request(ctx).SetBody(user).Post("/api/auth/register")
	})
	if err != nil {
		return models.Token{}, fmt.Errorf("register request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Token{}, err
	}

	return h.adoptSession(resp)
}

// Login implements [ServerAdapter]. It POSTs credentials to
// POST /api/auth/login and stores the issued bearer token via SetToken.
func (h *httpServerAdapter) Login(ctx context.Context, user models.User) (models.Token, error) {
	resp, err := h.send(ctx, func(ctx context.Context) (*resty.Response, error) {
		return h.request(ctx).SetBody(user).Post("/api/auth/login")
	})
	if err != nil {
		return models.Token{}, fmt.Errorf("login request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Token{}, err
	}

	return h.adoptSession(resp)
}

// Pull implements [ServerAdapter]. It GETs /api/sync with the since cursor
// as an RFC3339Nano query parameter; a zero since is sent without the
// parameter and returns the full live state.
func (h *httpServerAdapter) Pull(ctx context.Context, since time.Time) (models.PullResponse, error) {
	var pulled models.PullResponse

	resp, err := h.send(ctx, func(ctx context.Context) (*resty.Response, error) {
		req := h.request(ctx).SetResult(&pulled)
		if !since.IsZero() {
			req.SetQueryParam("since", since.Format(time.RFC3339Nano))
		}
		return req.Get("/api/sync")
	})
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("pull request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PullResponse{}, err
	}

	return pulled, nil
}

// Push implements [ServerAdapter]. It POSTs the batch to /api/sync/batch.
// Both 200 (clean) and 207 (partial) carry a [models.PushResult] body and
// return a nil error; conflicts and per-change errors live in the result.
func (h *httpServerAdapter) Push(ctx context.Context, request models.PushRequest) (models.PushResult, error) {
	var result models.PushResult

	resp, err := h.send(ctx, func(ctx context.Context) (*resty.Response, error) {
		return h.request(ctx).SetBody(request).SetResult(&result).Post("/api/sync/batch")
	})
	if err != nil {
		return models.PushResult{}, fmt.Errorf("push request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PushResult{}, err
	}

	return result, nil
}

// Resolve implements [ServerAdapter].
func (h *httpServerAdapter) Resolve(ctx context.Context, resolutions []models.ConflictResolution) (models.ResolveResponse, error) {
	var resolved models.ResolveResponse

	resp, err := h.send(ctx, func(ctx context.Context) (*resty.Response, error) {
		return h.request(ctx).SetBody(resolutions).SetResult(&resolved).Post("/api/sync/resolve-conflicts")
	})
	if err != nil {
		return models.ResolveResponse{}, fmt.Errorf("resolve request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.ResolveResponse{}, err
	}

	return resolved, nil
}

// AutoResolve implements [ServerAdapter].
func (h *httpServerAdapter) AutoResolve(ctx context.Context) (models.ResolveResponse, error) {
	var resolved models.ResolveResponse

	resp, err := h.send(ctx, func(ctx context.Context) (*resty.Response, error) {
		return h.request(ctx).SetResult(&resolved).Post("/api/sync/auto-resolve")
	})
	if err != nil {
		return models.ResolveResponse{}, fmt.Errorf("auto-resolve request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.ResolveResponse{}, err
	}

	return resolved, nil
}

// Status implements [ServerAdapter].
func (h *httpServerAdapter) Status(ctx context.Context) (models.StatusResponse, error) {
	var status models.StatusResponse

	resp, err := h.send(ctx, func(ctx context.Context) (*resty.Response, error) {
		return h.request(ctx).SetResult(&status).Get("/api/sync/status")
	})
	if err != nil {
		return models.StatusResponse{}, fmt.Errorf("status request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.StatusResponse{}, err
	}

	return status, nil
}

func (h *httpServerAdapter) request(ctx context.Context) *resty.Request {
	req := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")

	if token := h.Token(); token != "" {
		req.SetAuthToken(token)
	}

	return req
}

// send executes one request with fibonacci backoff on transient failures.
// Network errors and 5xx answers are retried; everything else is handed back
// to the caller for status mapping.
func (h *httpServerAdapter) send(ctx context.Context, do func(ctx context.Context) (*resty.Response, error)) (*resty.Response, error) {
	var resp *resty.Response

	backoff := retry.WithMaxRetries(retryMaxRetries, retry.NewFibonacci(retryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var sendErr error
		resp, sendErr = do(ctx)
		if sendErr != nil {
			return retry.RetryableError(sendErr)
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("server answered %d", resp.StatusCode()))
		}
		return nil
	})

	// Retries exhausted on a 5xx still produce a response; let the caller
	// map its status instead of losing the body.
	if err != nil && resp == nil {
		return nil, err
	}

	return resp, nil
}

func (h *httpServerAdapter) adoptSession(resp *resty.Response) (models.Token, error) {
	token, err := utils.ParseBearerToken(resp.Header().Get("Authorization"))
	if err != nil {
		return models.Token{}, fmt.Errorf("parse bearer token: %w", err)
	}

	userID, err := parseUserIDFromJWT(token)
	if err != nil {
		return models.Token{}, fmt.Errorf("parse user id: %w", err)
	}

	h.SetToken(token)
	return models.Token{SignedString: token, UserID: userID}, nil
}

// parseUserIDFromJWT reads the subject claim without verifying the
// signature. The client has no sign key; the server re-verifies every
// request anyway.
func parseUserIDFromJWT(tokenString string) (int64, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return 0, err
	}

	return strconv.ParseInt(claims.Subject, 10, 64)
}
