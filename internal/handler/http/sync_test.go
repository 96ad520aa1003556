package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/service"
	"github.com/mkamenev/memobox/internal/store"
	"github.com/mkamenev/memobox/models"
)

const validToken = "valid-token"

type stubAuthService struct {
	registerErr error
	loginErr    error
}

func (s *stubAuthService) RegisterUser(_ context.Context, user models.User) (models.User, error) {
	if s.registerErr != nil {
		return models.User{}, s.registerErr
	}
	user.UserID = 7
	return user, nil
}

func (s *stubAuthService) Login(_ context.Context, user models.User) (models.User, error) {
	if s.loginErr != nil {
		return models.User{}, s.loginErr
	}
	user.UserID = 7
	return user, nil
}

func (s *stubAuthService) CreateToken(_ context.Context, user models.User) (models.Token, error) {
	return models.Token{SignedString: validToken, UserID: user.UserID}, nil
}

func (s *stubAuthService) ValidateToken(_ context.Context, signed string) (models.Token, error) {
	if signed != validToken {
		return models.Token{}, errors.New("bad token")
	}
	return models.Token{UserID: 7}, nil
}

type stubSyncService struct {
	pullSince  time.Time
	pullResp   models.PullResponse
	pushUserID int64
	pushResult models.PushResult
	resolveN   int
	statusResp models.StatusResponse
	err        error
}

func (s *stubSyncService) Pull(_ context.Context, _ int64, since time.Time) (models.PullResponse, error) {
	s.pullSince = since
	return s.pullResp, s.err
}

func (s *stubSyncService) Push(_ context.Context, userID int64, _ models.PushRequest) (models.PushResult, error) {
	s.pushUserID = userID
	return s.pushResult, s.err
}

func (s *stubSyncService) Resolve(_ context.Context, _ int64, resolutions []models.ConflictResolution) (models.ResolveResponse, error) {
	s.resolveN = len(resolutions)
	return models.ResolveResponse{Resolved: len(resolutions)}, s.err
}

func (s *stubSyncService) AutoResolve(_ context.Context, _ int64) (models.ResolveResponse, error) {
	return models.ResolveResponse{Resolved: 2}, s.err
}

func (s *stubSyncService) Status(_ context.Context, _ int64) (models.StatusResponse, error) {
	return s.statusResp, s.err
}

func newTestRouter(sync *stubSyncService, auth *stubAuthService) http.Handler {
	if auth == nil {
		auth = &stubAuthService{}
	}
	services := &service.Services{AuthService: auth, SyncService: sync}
	return NewHandler(services, "1.0.0-test", logger.Nop()).Init()
}

func doRequest(t *testing.T, router http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPull_RequiresAuth(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/sync", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/sync", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPull_ParsesSinceCursor(t *testing.T) {
	sync := &stubSyncService{pullResp: models.PullResponse{LastSyncTimestamp: time.Now()}}
	router := newTestRouter(sync, nil)

	cursor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	target := "/api/sync?since=" + cursor.Format(time.RFC3339Nano)

	rec := doRequest(t, router, http.MethodGet, target, validToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sync.pullSince.Equal(cursor))

	var resp models.PullResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.LastSyncTimestamp.IsZero())
}

func TestPull_InvalidCursor(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/sync?since=yesterday", validToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPushBatch_CleanBatchAnswers200(t *testing.T) {
	sync := &stubSyncService{pushResult: models.PushResult{Processed: 2}}
	router := newTestRouter(sync, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/sync/batch", validToken, models.PushRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), sync.pushUserID)

	var result models.PushResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Processed)
}

func TestPushBatch_ConflictedBatchAnswers207(t *testing.T) {
	sync := &stubSyncService{pushResult: models.PushResult{
		Processed: 1,
		Conflicts: []models.Conflict{{ID: "memo:m1", Type: models.ConflictVersionMismatch}},
	}}
	router := newTestRouter(sync, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/sync/batch", validToken, models.PushRequest{})
	require.Equal(t, http.StatusMultiStatus, rec.Code)

	var result models.PushResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "memo:m1", result.Conflicts[0].ID)
}

func TestPushBatch_InvalidJSON(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sync/batch", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer "+validToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveConflicts(t *testing.T) {
	sync := &stubSyncService{}
	router := newTestRouter(sync, nil)

	resolutions := []models.ConflictResolution{
		{ConflictID: "memo:m1", Resolution: models.ResolutionServer},
		{ConflictID: "memo:m2", Resolution: models.ResolutionLocal},
	}

	rec := doRequest(t, router, http.MethodPost, "/api/sync/resolve-conflicts", validToken, resolutions)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, sync.resolveN)

	var resp models.ResolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Resolved)
}

func TestAutoResolve(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/sync/auto-resolve", validToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ResolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Resolved)
}

func TestSyncStatus(t *testing.T) {
	sync := &stubSyncService{statusResp: models.StatusResponse{
		Entities:       []models.EntityStatus{{Entity: models.EntityMemo, ID: "m1", SyncVersion: 3}},
		PendingChanges: 1,
	}}
	router := newTestRouter(sync, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/sync/status", validToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entities, 1)
	assert.Equal(t, 1, resp.PendingChanges)
}

func TestSyncError_MapsToStatus(t *testing.T) {
	sync := &stubSyncService{err: store.ErrVersionConflict}
	router := newTestRouter(sync, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/sync", validToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
