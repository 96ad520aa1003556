package store

import (
	"context"

	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
)

// Storages bundles every server-side repository behind one constructor.
type Storages struct {
	db *DB

	UserRepository     UserRepository
	LedgerRepository   LedgerRepository
	AuditRepository    AuditRepository
	ConflictRepository ConflictRepository
}

// NewStorages connects to PostgreSQL, runs migrations and wires all
// repositories over the shared pool.
func NewStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Storages, error) {
	db, err := NewConnectPostgres(ctx, cfg.DB, log)
	if err != nil {
		return nil, err
	}

	return &Storages{
		db:                 db,
		UserRepository:     NewSQLUserRepository(db, log),
		LedgerRepository:   NewSQLLedgerRepository(db, log),
		AuditRepository:    NewSQLAuditRepository(db, log),
		ConflictRepository: NewSQLConflictRepository(db, log),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Storages) Close() error {
	return s.db.Close()
}
