package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")

	ErrInvalidChangeID        = errors.New("invalid change id")
	ErrInvalidOperation       = errors.New("invalid operation")
	ErrInvalidEntityType      = errors.New("invalid entity type")
	ErrPayloadEntityMismatch  = errors.New("payload entity does not match change entity")
	ErrMissingRecordID        = errors.New("payload record id is required")
	ErrMissingClientTimestamp = errors.New("client timestamp is required")
	ErrInvalidResolution      = errors.New("invalid conflict resolution")
	ErrMissingMergedData      = errors.New("merge resolution requires merged data")
	ErrInvalidRecordFields    = errors.New("invalid record fields")
)
