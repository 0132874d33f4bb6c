// Package config loads goclaw-anon's JSON configuration: database DSN,
// fan-out tuning knobs, and logging. Secrets only ever arrive via
// environment overrides, never the config file.
package config

import "sync"

// Config is the root configuration for the anonymous group chat engine.
type Config struct {
	Database DatabaseConfig `json:"database,omitempty"`
	Fanout   FanoutConfig   `json:"fanout,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`

	mu sync.RWMutex
}

// DatabaseConfig holds the Postgres connection string. The DSN itself is
// a secret and is never persisted to the config file; it is expected to
// arrive via the ANONCHAT_POSTGRES_DSN environment variable.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
}

// FanoutConfig tunes the Group Fan-out Engine.
type FanoutConfig struct {
	// MaskUniverse overrides the default emoji mask universe.
	MaskUniverse []string `json:"mask_universe,omitempty"`
	// MaskTTLSeconds is the inactivity window after which a held mask
	// becomes recyclable. 0 disables recycling.
	MaskTTLSeconds int `json:"mask_ttl_seconds,omitempty"`
	// OperationTimeoutSeconds is the hard wait timeout a caller uses to
	// detect a stuck operation; the Worker is never aborted.
	OperationTimeoutSeconds int `json:"operation_timeout_seconds,omitempty"`
	// StatusAutoDeleteSeconds, SetmaskTimeoutSeconds and
	// RevealTimeoutSeconds are loaded but not applied: cmd/serve.go only
	// takes OperationTimeoutSeconds from here, and the bot's status
	// auto-delete delay, /setmask timeout and /reveal panel lifetime keep
	// the values of bot.DefaultTimeouts.
	StatusAutoDeleteSeconds int `json:"status_auto_delete_seconds,omitempty"`
	SetmaskTimeoutSeconds   int `json:"setmask_timeout_seconds,omitempty"`
	RevealTimeoutSeconds    int `json:"reveal_timeout_seconds,omitempty"`
	// TransportRatePerSecond caps outbound calls per bot token.
	TransportRatePerSecond float64 `json:"transport_rate_per_second,omitempty"`
}

// LoggingConfig controls the slog handler wired up in cmd/serve.go.
type LoggingConfig struct {
	Level string `json:"level,omitempty"` // debug|info|warn|error
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Fanout: FanoutConfig{
			MaskTTLSeconds:          1800,
			OperationTimeoutSeconds: 120,
			StatusAutoDeleteSeconds: 10,
			SetmaskTimeoutSeconds:   120,
			RevealTimeoutSeconds:    15,
			TransportRatePerSecond:  25,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
