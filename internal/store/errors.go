package store

import "errors"

var (
	// ErrLoginAlreadyExists is returned when registration hits a login that
	// is already taken.
	ErrLoginAlreadyExists = errors.New("user with given login already exists")

	// ErrNoUserWasFound is returned when no user matches the given login.
	ErrNoUserWasFound = errors.New("no user was found")

	// ErrRecordNotFound is returned when the ledger has no row for the
	// requested (user, entity, id).
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists is returned when an insert targets an id that is
	// already present in the ledger.
	ErrRecordExists = errors.New("record already exists")

	// ErrVersionConflict is returned when a compare-and-apply update matched
	// the row but not the observed sync version.
	ErrVersionConflict = errors.New("record sync version conflict")

	// ErrAuditEntryNotFound is returned when the audit log has no entry at
	// the requested version.
	ErrAuditEntryNotFound = errors.New("audit entry not found")

	// ErrConflictNotFound is returned when no stored conflict matches the
	// given conflict id.
	ErrConflictNotFound = errors.New("conflict not found")
)

var (
	ErrDatabaseConnection = errors.New("unable to connect to database")
	ErrDatabaseMigration  = errors.New("unable to run database migrations")
	ErrSQLQueryBuild      = errors.New("unable to build sql query")
	ErrSQLExecution       = errors.New("error occurred during sql query execution")
	ErrSQLRowScan         = errors.New("error occurred during sql row scanning")
)
