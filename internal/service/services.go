package service

import (
	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/store"
	"github.com/mkamenev/memobox/internal/validators"
)

// Services bundles the server-side business logic behind one constructor.
type Services struct {
	AuthService AuthService
	SyncService SyncService
}

func NewServices(storages *store.Storages, cfg *config.StructuredConfig, logger *logger.Logger) *Services {
	return &Services{
		AuthService: NewAuthService(storages.UserRepository, cfg.App, logger),
		SyncService: NewSyncService(
			storages.LedgerRepository,
			storages.AuditRepository,
			storages.ConflictRepository,
			validators.NewSyncValidator(),
			logger,
		),
	}
}
