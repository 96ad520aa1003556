package service

import "errors"

var (
	// ErrNotAuthenticated is returned when a sync round starts without a
	// stored session.
	ErrNotAuthenticated = errors.New("client is not authenticated")

	// ErrEmptyRecordID is returned by record mutations missing the id.
	ErrEmptyRecordID = errors.New("empty record id")
)
