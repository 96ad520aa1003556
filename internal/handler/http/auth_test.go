package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamenev/memobox/internal/service"
	"github.com/mkamenev/memobox/internal/store"
	"github.com/mkamenev/memobox/models"
)

func TestRegister(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/auth/register", "",
		models.User{Login: "alice", Password: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer "+validToken, rec.Header().Get("Authorization"))
}

func TestRegister_DuplicateLogin(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, &stubAuthService{registerErr: store.ErrLoginAlreadyExists})

	rec := doRequest(t, router, http.MethodPost, "/api/auth/register", "",
		models.User{Login: "alice", Password: "s3cret"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/auth/login", "",
		models.User{Login: "alice", Password: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer "+validToken, rec.Header().Get("Authorization"))
}

func TestLogin_WrongPassword(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, &stubAuthService{loginErr: service.ErrWrongPassword})

	rec := doRequest(t, router, http.MethodPost, "/api/auth/login", "",
		models.User{Login: "alice", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAppVersion(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/version", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp versionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1.0.0-test", resp.Version)
}
