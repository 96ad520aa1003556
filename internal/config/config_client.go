package config

import (
	"fmt"
	"time"
)

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// ServerURL is the base URL of the memobox server.
	ServerURL string
	// RequestTimeout is the default timeout for outbound sync requests.
	RequestTimeout time.Duration
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DBPath is the SQLite file backing the local mirror.
	DBPath string
}

// ClientSync contains the orchestrator's scheduling settings.
type ClientSync struct {
	// Interval is the periodic sync trigger interval.
	Interval time.Duration
	// DebounceDelay coalesces bursts of local writes into one trigger.
	DebounceDelay time.Duration
	// MaxRetries caps retries of a single offline change before it is
	// dropped and surfaced as a permanent sync error.
	MaxRetries int
}

// ClientConfig is the client-agent view over [StructuredConfig].
type ClientConfig struct {
	Adapter ClientAdapter
	Storage ClientStorage
	Sync    ClientSync
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		Adapter: ClientAdapter{
			ServerURL:      cfg.Client.ServerURL,
			RequestTimeout: cfg.Client.RequestTimeout,
		},
		Storage: ClientStorage{
			DBPath: cfg.Client.DBPath,
		},
		Sync: ClientSync{
			Interval:      cfg.Client.SyncInterval,
			DebounceDelay: cfg.Client.DebounceDelay,
			MaxRetries:    cfg.Client.MaxRetries,
		},
	}

	return clientCfg, clientCfg.validate()
}
