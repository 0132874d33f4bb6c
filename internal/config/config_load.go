package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/titanous/json5"
)

// Load reads config from a JSON(5) file, then overlays environment
// variables: file first, env wins.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays secrets and deployment knobs from the
// environment. Env vars always take precedence over file values; this
// is how the Postgres DSN reaches the process without ever touching
// config.json. Bot tokens are not configured here; they are read from
// each group's database row.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("ANONCHAT_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("ANONCHAT_LOG_LEVEL", &c.Logging.Level)

	if v := os.Getenv("ANONCHAT_MASK_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Fanout.MaskTTLSeconds = n
		}
	}
	if v := os.Getenv("ANONCHAT_OPERATION_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Fanout.OperationTimeoutSeconds = n
		}
	}
	if v := os.Getenv("ANONCHAT_TRANSPORT_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Fanout.TransportRatePerSecond = f
		}
	}
}

// MaskTTL is the FanoutConfig's TTL as a time.Duration; <= 0 disables
// mask recycling.
func (c *Config) MaskTTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Fanout.MaskTTLSeconds) * time.Second
}

// OperationTimeout is the hard per-operation wait timeout.
func (c *Config) OperationTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Fanout.OperationTimeoutSeconds) * time.Second
}

// Save writes the config to a JSON file (0600, directories created on
// demand).
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
