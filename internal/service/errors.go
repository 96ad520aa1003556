package service

import "errors"

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")
	ErrWrongPassword       = errors.New("wrong password")

	ErrUnknownConflictID = errors.New("unknown conflict id")
	ErrRecordNotFound    = errors.New("record not found")
)
