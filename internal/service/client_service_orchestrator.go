// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mkamenev/memobox/internal/config"
	"github.com/mkamenev/memobox/internal/logger"
)

const (
	defaultSyncInterval  = 5 * time.Minute
	defaultDebounceDelay = 2 * time.Second
)

// clientSyncOrchestrator decides when to run a sync round. Two triggers
// feed one loop: a periodic ticker, and a debounced wake-up after local
// writes so a burst of edits becomes a single round shortly after the burst
// ends. Rounds run one at a time on the loop goroutine; triggers firing
// while a round is in flight are dropped.
type clientSyncOrchestrator struct {
	syncService ClientSyncService

	interval time.Duration
	debounce time.Duration
	logger   *logger.Logger

	changed chan struct{}
	online  chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewClientSyncOrchestrator(syncService ClientSyncService, cfg config.ClientSync, logger *logger.Logger) ClientSyncOrchestrator {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	debounce := cfg.DebounceDelay
	if debounce <= 0 {
		debounce = defaultDebounceDelay
	}

	return &clientSyncOrchestrator{
		syncService: syncService,
		interval:    interval,
		debounce:    debounce,
		logger:      logger,
		changed:     make(chan struct{}, 1),
		online:      make(chan struct{}, 1),
	}
}

// Start implements [ClientSyncOrchestrator]. It stops any previously running
// loop first, so calling Start twice never leaks a goroutine.
func (o *clientSyncOrchestrator) Start(ctx context.Context) {
	o.Stop()

	o.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		o.run(loopCtx)
	}()
}

// NotifyLocalChange implements [ClientSyncOrchestrator]. Non-blocking; a
// signal already waiting to be picked up absorbs later ones.
func (o *clientSyncOrchestrator) NotifyLocalChange() {
	select {
	case o.changed <- struct{}{}:
	default:
	}
}

// NotifyOnline implements [ClientSyncOrchestrator]. Connectivity detection
// is the caller's concern; the signal skips the debounce delay.
func (o *clientSyncOrchestrator) NotifyOnline() {
	select {
	case o.online <- struct{}{}:
	default:
	}
}

// Stop implements [ClientSyncOrchestrator]. Safe to call when the loop is
// not running.
func (o *clientSyncOrchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

func (o *clientSyncOrchestrator) run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	// Debounce timer is armed on the first change signal of a burst and
	// re-armed on every further signal until it fires.
	debounce := time.NewTimer(o.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-o.changed:
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(o.debounce)

		case <-o.online:
			o.sync(ctx)

		case <-debounce.C:
			o.sync(ctx)

		case <-ticker.C:
			o.sync(ctx)
		}
	}
}

func (o *clientSyncOrchestrator) sync(ctx context.Context) {
	if _, err := o.syncService.SyncOnce(ctx); err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			o.logger.Debug().Msg("sync skipped, no session yet")
		} else {
			o.logger.Err(err).Msg("background sync round failed")
		}
	}

	// Triggers that fired while the round was in flight are dropped, not
	// queued: the round already pushed whatever was pending when it started,
	// and anything later rides the next tick or change signal.
	select {
	case <-o.changed:
	default:
	}
	select {
	case <-o.online:
	default:
	}
}
