// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for memobox.
// It aggregates all sub-configurations and is populated by merging values
// from environment variables, command-line flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds token parameters and the application version.
	App App `envPrefix:"APP_"`

	// Storage holds the server database settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds network address and timeout settings for the HTTP server.
	Server Server `envPrefix:"SERVER_"`

	// Workers holds settings for server-side background workers
	// (currently the audit retention sweeper).
	Workers Workers `envPrefix:"WORKERS_"`

	// Client holds settings consumed only by the client agent.
	Client Client `envPrefix:"CLIENT_"`

	// JSONFilePath is the optional path to a JSON configuration file,
	// merged on top of env and flag values when non-empty.
	// Populated via the CONFIG environment variable or the -c/-config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration controlling token lifecycle and
// versioning.
type App struct {
	// TokenSignKey is the secret key used to sign and verify JWT tokens.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim embedded in every issued token.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration is how long a token remains valid (e.g. "24h").
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// Version is the semantic version of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage groups server persistence settings.
type Storage struct {
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the server's PostgreSQL database.
type DB struct {
	// DSN is the PostgreSQL connection string.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Server holds network and timeout settings for the inbound HTTP transport.
type Server struct {
	// HTTPAddress is the TCP address the HTTP server listens on
	// ("host:port"). Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout bounds a single inbound request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds server-side background worker settings.
type Workers struct {
	// AuditRetention is how long sync audit entries are kept before the
	// retention sweeper removes them. Defaults to 720h (30 days).
	// Env: WORKERS_AUDIT_RETENTION
	AuditRetention time.Duration `env:"AUDIT_RETENTION"`

	// SweepInterval is how often the retention sweeper runs.
	// Env: WORKERS_SWEEP_INTERVAL
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`
}

// Client holds client-agent settings.
type Client struct {
	// ServerURL is the base URL of the memobox server.
	// Env: CLIENT_SERVER_URL
	ServerURL string `env:"SERVER_URL"`

	// DBPath is the SQLite file backing the local mirror.
	// Env: CLIENT_DB_PATH
	DBPath string `env:"DB_PATH"`

	// RequestTimeout bounds a single outbound sync request.
	// Env: CLIENT_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// SyncInterval is the periodic sync trigger interval.
	// Env: CLIENT_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// DebounceDelay coalesces bursts of local writes into one sync trigger.
	// Env: CLIENT_DEBOUNCE_DELAY
	DebounceDelay time.Duration `env:"DEBOUNCE_DELAY"`

	// MaxRetries caps how many sync attempts may retry one offline change
	// before it is dropped and surfaced as a permanent sync error.
	// Env: CLIENT_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
