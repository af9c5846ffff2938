package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration from multiple sources
type Loader struct {
	config   *Config
	filePath string
}

// NewLoader creates a new configuration loader. The config file is taken from
// BT_CONFIG when set, otherwise from the default data directory.
func NewLoader() *Loader {
	cfg := NewConfig()
	filePath := os.Getenv("BT_CONFIG")
	if filePath == "" {
		filePath = cfg.GetFilePath()
	}
	return &Loader{
		config:   cfg,
		filePath: filePath,
	}
}

// NewLoaderWithFile creates a loader reading the given YAML file
func NewLoaderWithFile(path string) *Loader {
	return &Loader{
		config:   NewConfig(),
		filePath: path,
	}
}

// Load loads configuration using the cascading strategy:
// 1. Start with defaults
// 2. Override with the YAML config file, if present
// 3. Override with environment variables
// 4. Override with command line flags (handled by cobra)
func (l *Loader) Load() (*Config, error) {
	if err := l.loadFile(); err != nil {
		return nil, err
	}

	if err := l.config.LoadFromEnvironment(); err != nil {
		return nil, err
	}

	if err := l.config.Validate(); err != nil {
		return nil, err
	}

	return l.config, nil
}

// loadFile merges the YAML file over the defaults. A missing file is not an error.
func (l *Loader) loadFile() error {
	if l.filePath == "" {
		return nil
	}
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", l.filePath, err)
	}
	if err := yaml.Unmarshal(data, l.config); err != nil {
		return &ConfigError{Field: "file", Message: fmt.Sprintf("invalid YAML in %s: %v", l.filePath, err)}
	}
	return nil
}

// LoadWithOverrides loads configuration and applies command line overrides
func (l *Loader) LoadWithOverrides(overrides *ConfigOverrides) (*Config, error) {
	config, err := l.Load()
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		ApplyOverrides(config, overrides)
	}

	// Re-validate after applying overrides
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ConfigOverrides holds command line flag overrides
type ConfigOverrides struct {
	// Tracking overrides
	Enabled        *bool
	TicketPattern  *string
	IdleTimeout    *time.Duration
	BranchInterval *time.Duration
	IdleInterval   *time.Duration
	ContinueWindow *time.Duration
	AllowedOrgs    []string

	// Service overrides
	WorkspaceID *int64
	TogglURL    *string
	MondayURL   *string

	// Storage overrides
	DataDir *string

	// Application overrides
	Timeout *time.Duration
	Verbose *bool
}

// ApplyOverrides applies command line overrides to the configuration
func ApplyOverrides(config *Config, overrides *ConfigOverrides) {
	if overrides.Enabled != nil {
		config.Tracking.Enabled = *overrides.Enabled
	}
	if overrides.TicketPattern != nil {
		config.Tracking.TicketPattern = *overrides.TicketPattern
	}
	if overrides.IdleTimeout != nil {
		config.Tracking.IdleTimeout = *overrides.IdleTimeout
	}
	if overrides.BranchInterval != nil {
		config.Tracking.BranchInterval = *overrides.BranchInterval
	}
	if overrides.IdleInterval != nil {
		config.Tracking.IdleInterval = *overrides.IdleInterval
	}
	if overrides.ContinueWindow != nil {
		config.Tracking.ContinueWindow = *overrides.ContinueWindow
	}
	if len(overrides.AllowedOrgs) > 0 {
		config.Tracking.AllowedOrgs = overrides.AllowedOrgs
	}

	if overrides.WorkspaceID != nil {
		config.Toggl.WorkspaceID = *overrides.WorkspaceID
	}
	if overrides.TogglURL != nil {
		config.Toggl.BaseURL = *overrides.TogglURL
	}
	if overrides.MondayURL != nil {
		config.Monday.BaseURL = *overrides.MondayURL
	}

	if overrides.DataDir != nil {
		config.Storage.Dir = *overrides.DataDir
	}

	if overrides.Timeout != nil {
		config.Application.Timeout = *overrides.Timeout
	}
	if overrides.Verbose != nil {
		config.Application.Verbose = *overrides.Verbose
	}
}

// ParseDurationWithFallback parses a duration string with a fallback value
func ParseDurationWithFallback(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

// ParseIntWithFallback parses an integer string with a fallback value
func ParseIntWithFallback(s string, fallback int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return fallback
}

// ParseInt64WithFallback parses a 64-bit identifier with a fallback value
func ParseInt64WithFallback(s string, fallback int64) int64 {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return fallback
}

// ParseBoolWithFallback parses a boolean string with a fallback value
func ParseBoolWithFallback(s string, fallback bool) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return fallback
}

// ParseUint32WithFallback parses a uint32 string with a fallback value
func ParseUint32WithFallback(s string, base int, fallback uint32) uint32 {
	if u, err := strconv.ParseUint(s, base, 32); err == nil {
		return uint32(u)
	}
	return fallback
}
