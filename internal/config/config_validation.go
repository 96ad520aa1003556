// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package config

import (
	"strings"
	"time"
)

// Defaults applied after merging all sources. Only fields the sync engine
// cannot run without sensible values for are defaulted; credentials never are.
const (
	defaultSyncInterval   = 5 * time.Minute
	defaultDebounceDelay  = 2 * time.Second
	defaultMaxRetries     = 3
	defaultAuditRetention = 30 * 24 * time.Hour
	defaultSweepInterval  = time.Hour
	defaultRequestTimeout = 15 * time.Second
)

func (cfg *StructuredConfig) applyDefaults() {
	if cfg.Workers.AuditRetention <= 0 {
		cfg.Workers.AuditRetention = defaultAuditRetention
	}
	if cfg.Workers.SweepInterval <= 0 {
		cfg.Workers.SweepInterval = defaultSweepInterval
	}
	if cfg.Client.SyncInterval <= 0 {
		cfg.Client.SyncInterval = defaultSyncInterval
	}
	if cfg.Client.DebounceDelay <= 0 {
		cfg.Client.DebounceDelay = defaultDebounceDelay
	}
	if cfg.Client.MaxRetries <= 0 {
		cfg.Client.MaxRetries = defaultMaxRetries
	}
	if cfg.Client.RequestTimeout <= 0 {
		cfg.Client.RequestTimeout = defaultRequestTimeout
	}
}

// validate checks that the final merged [StructuredConfig] satisfies the
// invariants the server needs at startup. Client-only fields are validated
// separately by [ClientConfig.validate] so a server deployment does not need
// client settings and vice versa.
func (cfg *StructuredConfig) validate() error {
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DBPath == "" || strings.Contains(cfg.Storage.DBPath, "memory") {
		return ErrInvalidStorageConfigs
	}

	if cfg.Adapter.ServerURL == "" || cfg.Adapter.RequestTimeout == 0 {
		return ErrInvalidAdapterConfigs
	}

	if cfg.Sync.Interval == 0 || cfg.Sync.MaxRetries == 0 {
		return ErrInvalidSyncConfigs
	}

	return nil
}
