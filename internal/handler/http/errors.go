package http

import "errors"

var (
	ErrEmptyAuthorizationHeader   = errors.New("empty Authorization header")
	ErrInvalidAuthorizationHeader = errors.New("invalid Authorization header")
	ErrEmptyToken                 = errors.New("empty token")

	ErrInvalidJSONBody    = errors.New("invalid JSON body")
	ErrInvalidSinceCursor = errors.New("invalid since cursor")
)
