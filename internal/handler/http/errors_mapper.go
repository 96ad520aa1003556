package http

import (
	"errors"
	"net/http"

	"github.com/mkamenev/memobox/internal/service"
	"github.com/mkamenev/memobox/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided: http.StatusBadRequest,
	service.ErrWrongPassword:       http.StatusUnauthorized,
	service.ErrUnknownConflictID:   http.StatusNotFound,
	service.ErrRecordNotFound:      http.StatusNotFound,

	store.ErrLoginAlreadyExists: http.StatusConflict,
	store.ErrNoUserWasFound:     http.StatusUnauthorized,
	store.ErrRecordNotFound:     http.StatusNotFound,
	store.ErrRecordExists:       http.StatusConflict,
	store.ErrVersionConflict:    http.StatusConflict,
	store.ErrConflictNotFound:   http.StatusNotFound,

	store.ErrDatabaseConnection: http.StatusInternalServerError,
	store.ErrSQLQueryBuild:      http.StatusInternalServerError,
	store.ErrSQLExecution:       http.StatusInternalServerError,
	store.ErrSQLRowScan:         http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
