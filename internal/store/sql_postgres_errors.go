package store

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresErrorClassifier maps PostgreSQL error classes onto retryability.
type PostgresErrorClassifier struct{}

func NewPostgresErrorClassifier() *PostgresErrorClassifier {
	return &PostgresErrorClassifier{}
}

// Classify inspects err for a *pgconn.PgError and buckets its SQLSTATE class.
// Connection failures, serialization rollbacks and server shutdowns are
// retryable; data, constraint and syntax errors are not.
func (c *PostgresErrorClassifier) Classify(err error) ErrorClassification {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return Unknown
	}

	switch {
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgerrcode.IsTransactionRollback(pgErr.Code),
		pgerrcode.IsOperatorIntervention(pgErr.Code):
		return Retryable

	// The class 42 helper name carries an upstream lowercase "or" typo.
	case pgerrcode.IsDataException(pgErr.Code),
		pgerrcode.IsIntegrityConstraintViolation(pgErr.Code),
		pgerrcode.IsSyntaxErrororAccessRuleViolation(pgErr.Code):
		return NonRetryable

	default:
		return Unknown
	}
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
