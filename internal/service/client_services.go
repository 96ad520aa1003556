package service

import (
	"github.com/mkamenev/memobox/internal/adapter"
	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/store"
)

// ClientServices bundles the client-side business logic. Records flow
// through RecordsService into the mirror and the offline queue; SyncService
// reconciles both with the server; Orchestrator decides when.
type ClientServices struct {
	AuthService    ClientAuthService
	RecordsService ClientRecordsService
	SyncService    ClientSyncService
	Orchestrator   ClientSyncOrchestrator
}

func NewClientServices(
	storages *store.ClientStorages,
	serverAdapter adapter.ServerAdapter,
	cfg config.ClientSync,
	logger *logger.Logger,
) *ClientServices {
	authSvc := NewClientAuthService(storages.SyncStateRepository, serverAdapter, logger)
	recordsSvc := NewClientRecordsService(storages.MirrorRepository, storages.QueueRepository, logger)
	syncSvc := NewClientSyncService(storages, serverAdapter, cfg, logger)
	orchestrator := NewClientSyncOrchestrator(syncSvc, cfg, logger)

	// Local writes wake the orchestrator so edits reach the server shortly
	// after the burst ends instead of waiting for the next tick.
	recordsSvc.SetNotifier(orchestrator)

	return &ClientServices{
		AuthService:    authSvc,
		RecordsService: recordsSvc,
		SyncService:    syncSvc,
		Orchestrator:   orchestrator,
	}
}
