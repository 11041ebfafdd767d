// Package config loads and validates rite configuration from
// .scaffold/config.yaml, with an optional scaffold.toml overlay and
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/novalym/velm-sub003/internal/logging"
)

// Config holds all rite configuration.
type Config struct {
	Workspace string `yaml:"-" json:"-"` // set by Load, never persisted

	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Limits     Limits           `yaml:"limits" json:"limits"`
	Validators ValidatorsConfig `yaml:"validators" json:"validators"`
	Sanctum    SanctumConfig    `yaml:"sanctum" json:"sanctum"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			DebugMode: false,
		},
		Limits:     DefaultLimits(),
		Validators: DefaultValidatorsConfig(),
		Sanctum:    DefaultSanctumConfig(),
	}
}

// Load loads configuration from .scaffold/config.yaml under workspace,
// then merges an optional scaffold.toml overlay, then applies environment
// overrides. Missing files are not an error: defaults apply.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Workspace = workspace

	yamlPath := filepath.Join(workspace, ".scaffold", "config.yaml")
	logging.BootDebug("loading config from %s", yamlPath)

	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", yamlPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", yamlPath, err)
	} else {
		logging.Boot("no config.yaml found, using defaults")
	}

	tomlPath := filepath.Join(workspace, "scaffold.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		if _, err := toml.DecodeFile(tomlPath, cfg); err != nil {
			return nil, fmt.Errorf("parse overlay %s: %w", tomlPath, err)
		}
		logging.Boot("merged toml overlay %s", tomlPath)
	}

	cfg.applyEnvOverrides()
	cfg.Workspace = workspace

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to .scaffold/config.yaml under workspace.
func (c *Config) Save(workspace string) error {
	dir := filepath.Join(workspace, ".scaffold")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks that the config is internally consistent.
func (c *Config) Validate() error {
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	switch c.Sanctum.Backend {
	case "", "local", "memory", "s3", "ssh":
	default:
		return fmt.Errorf("unknown sanctum backend %q", c.Sanctum.Backend)
	}
	return nil
}

// applyEnvOverrides lets SCAFFOLD_* environment variables override the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCAFFOLD_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if v := os.Getenv("SCAFFOLD_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SCAFFOLD_SANCTUM"); v != "" {
		c.Sanctum.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("SCAFFOLD_LOCK_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limits.LockTimeoutSec = n
		}
	}
}
