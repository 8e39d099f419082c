// Manages server configuration stored in server_config.json.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ServerConfig stores all server-wide configuration.
// Loaded from server_config.json, created with defaults if missing.
type ServerConfig struct {
	// Quotas defines server-wide resource limits.
	Quotas ResourceQuotas `json:"quotas"`

	// RateLimits defines rate limiting configuration.
	RateLimits RateLimits `json:"rate_limits"`
}

// RateLimits defines rate limiting configuration (requests per minute).
type RateLimits struct {
	// WriteRatePerMin limits write operations (POST/PATCH/DELETE).
	// 0 means unlimited.
	WriteRatePerMin int `json:"write_rate_per_min"`

	// ReadRatePerMin limits read operations.
	// 0 means unlimited.
	ReadRatePerMin int `json:"read_rate_per_min"`

	// EvalRatePerMin limits visibility evaluation calls, which are issued on
	// every answer change during delivery. 0 means unlimited.
	EvalRatePerMin int `json:"eval_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	if r.ReadRatePerMin < 0 {
		return errors.New("read_rate_per_min must be non-negative")
	}
	if r.EvalRatePerMin < 0 {
		return errors.New("eval_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultRateLimits returns the default rate limits.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		WriteRatePerMin: 120,   // 120 req/min for authoring writes
		ReadRatePerMin:  6000,  // 6k req/min for reads
		EvalRatePerMin:  30000, // 30k req/min for delivery evaluation
	}
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if err := c.Quotas.Validate(); err != nil {
		return fmt.Errorf("quotas: %w", err)
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	return nil
}

// LoadServerConfig loads configuration from dataDir/server_config.json.
// Creates the file with defaults if it doesn't exist.
func LoadServerConfig(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, "server_config.json")

	cfg := ServerConfig{Quotas: DefaultResourceQuotas(), RateLimits: DefaultRateLimits()}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read server_config.json: %w", err)
		}
		// File doesn't exist, create it with defaults.
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	} else {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse server_config.json: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server_config.json: %w", err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/server_config.json.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dataDir, "server_config.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write server_config.json: %w", err)
	}
	return nil
}
