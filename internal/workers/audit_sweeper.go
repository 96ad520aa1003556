// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package workers

import (
	"context"
	"time"

	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/internal/store"
)

// AuditSweeper periodically deletes resolved sync audit entries older than
// the configured retention window. Entries newer than the window, and the
// latest snapshot per record, are kept so three-way merges can still find a
// common ancestor.
type AuditSweeper struct {
	auditRepository store.AuditRepository
	retention       time.Duration
	interval        time.Duration
	logger          *logger.Logger

	now func() time.Time
}

func NewAuditSweeper(auditRepository store.AuditRepository, cfg config.Workers, logger *logger.Logger) *AuditSweeper {
	return &AuditSweeper{
		auditRepository: auditRepository,
		retention:       cfg.AuditRetention,
		interval:        cfg.SweepInterval,
		logger:          logger,
		now:             time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (w *AuditSweeper) Run(ctx context.Context) {
	w.logger.Info().
		Dur("retention", w.retention).
		Dur("interval", w.interval).
		Msg("audit sweeper started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("audit sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *AuditSweeper) sweep(ctx context.Context) {
	cutoff := w.now().UTC().Add(-w.retention)

	deleted, err := w.auditRepository.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.Err(err).Msg("audit sweep failed")
		return
	}
	if deleted > 0 {
		w.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("audit entries swept")
	}
}
