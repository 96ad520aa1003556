package store

import (
	"context"

	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
)

// ClientStorages groups the client-side repositories over one SQLite file.
type ClientStorages struct {
	db *DB

	MirrorRepository    MirrorRepository
	QueueRepository     QueueRepository
	SyncStateRepository SyncStateRepository
}

// NewClientStorages opens the local mirror database and wires the mirror,
// queue and sync-state repositories over it.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (*ClientStorages, error) {
	db, err := NewConnectSQLite(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &ClientStorages{
		db:                  db,
		MirrorRepository:    NewLocalMirrorRepository(db, log),
		QueueRepository:     NewLocalQueueRepository(db, log),
		SyncStateRepository: NewLocalSyncStateRepository(db, log),
	}, nil
}

// Close releases the SQLite handle.
func (s *ClientStorages) Close() error {
	return s.db.Close()
}
