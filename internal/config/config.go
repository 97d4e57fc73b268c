// Package config handles project and user configuration for spellbook.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/axiomantic/spellbook/internal/core/estimate"
)

// Role constants
const (
	RoleConductor = "CONDUCTOR" // Orchestrating agent
	RoleWorker    = "WORKER"    // Track implementation agent
)

// Config represents the flat per-project configuration stored in
// .spellbook/config.json at the project root.
type Config struct {
	Version   string `json:"version"`
	Role      string `json:"role"`                 // "CONDUCTOR" or "WORKER"
	SessionID string `json:"session_id,omitempty"` // SESS-XXX
	TrackID   string `json:"track_id,omitempty"`   // for WORKER
	Feature   string `json:"feature,omitempty"`
}

// LoadConfig reads .spellbook/config.json from the specified directory.
// Resolution order: dir only (no home fallback).
// Returns error if no config found - caller should handle accordingly.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, ".spellbook", "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// SaveConfig writes config.json to directory
func SaveConfig(dir string, cfg *Config) error {
	cfgDir := filepath.Join(dir, ".spellbook")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("failed to create .spellbook dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(cfgDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// UserConfig is the optional per-user configuration read from
// ~/.spellbook/config.toml. All fields fall back to built-in defaults,
// so a missing file is not an error.
type UserConfig struct {
	Estimator EstimatorConfig `toml:"estimator"`
	Worker    WorkerConfig    `toml:"worker"`
}

// EstimatorConfig overrides complexity-estimation constants. Zero values
// mean "use the default".
type EstimatorConfig struct {
	BaseOverhead      int `toml:"base_overhead"`
	TokensPerKB       int `toml:"tokens_per_kb"`
	PerTaskCost       int `toml:"per_task_cost"`
	PerFileCost       int `toml:"per_file_cost"`
	ContextWindowSize int `toml:"context_window_size"`
}

// WorkerConfig tunes research/implementation capability calls.
type WorkerConfig struct {
	CapabilityTimeoutSeconds int    `toml:"capability_timeout_seconds"`
	Command                  string `toml:"command"` // handoff worker command template
}

// DefaultCapabilityTimeoutSeconds bounds each external capability call.
const DefaultCapabilityTimeoutSeconds = 120

// LoadUserConfig reads ~/.spellbook/config.toml. A missing file returns
// an all-defaults config with no error; a malformed file is an error.
func LoadUserConfig() (*UserConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadUserConfigFrom(filepath.Join(home, ".spellbook", "config.toml"))
}

// LoadUserConfigFrom reads a user config from an explicit path.
func LoadUserConfigFrom(path string) (*UserConfig, error) {
	var cfg UserConfig
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// EstimatorConstants merges user overrides onto the built-in estimation
// constants. Only explicitly set (non-zero) fields override.
func (c *UserConfig) EstimatorConstants() estimate.Constants {
	constants := estimate.DefaultConstants()
	if c == nil {
		return constants
	}
	if c.Estimator.BaseOverhead > 0 {
		constants.BaseOverhead = c.Estimator.BaseOverhead
	}
	if c.Estimator.TokensPerKB > 0 {
		constants.TokensPerKB = c.Estimator.TokensPerKB
	}
	if c.Estimator.PerTaskCost > 0 {
		constants.PerTaskCost = c.Estimator.PerTaskCost
	}
	if c.Estimator.PerFileCost > 0 {
		constants.PerFileCost = c.Estimator.PerFileCost
	}
	if c.Estimator.ContextWindowSize > 0 {
		constants.ContextWindowSize = c.Estimator.ContextWindowSize
	}
	return constants
}

// CapabilityTimeoutSeconds returns the configured capability timeout or
// the default.
func (c *UserConfig) CapabilityTimeoutSeconds() int {
	if c != nil && c.Worker.CapabilityTimeoutSeconds > 0 {
		return c.Worker.CapabilityTimeoutSeconds
	}
	return DefaultCapabilityTimeoutSeconds
}
