package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTicketPattern matches six or more consecutive digits.
const DefaultTicketPattern = `(\d{6,})`

// Config holds all configuration options for the branch tracker
type Config struct {
	Tracking    TrackingConfig    `yaml:"tracking"`
	Toggl       TogglConfig       `yaml:"toggl"`
	Monday      MondayConfig      `yaml:"monday"`
	Storage     StorageConfig     `yaml:"storage"`
	Application ApplicationConfig `yaml:"application"`
}

// TrackingConfig holds the reconciliation loop settings
type TrackingConfig struct {
	Enabled          bool          `yaml:"enabled" env:"BT_ENABLED"`
	TicketPattern    string        `yaml:"ticket_pattern" env:"BT_TICKET_PATTERN"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" env:"BT_IDLE_TIMEOUT"`
	BranchInterval   time.Duration `yaml:"branch_interval" env:"BT_BRANCH_INTERVAL"`
	IdleInterval     time.Duration `yaml:"idle_interval" env:"BT_IDLE_INTERVAL"`
	ContinueWindow   time.Duration `yaml:"continue_window" env:"BT_CONTINUE_WINDOW"`
	RecentDays       int           `yaml:"recent_days" env:"BT_RECENT_DAYS"`
	DefaultProjectID int64         `yaml:"default_project_id" env:"BT_DEFAULT_PROJECT_ID"`
	Billable         bool          `yaml:"billable" env:"BT_BILLABLE"`
	BreakProjectID   int64         `yaml:"break_project_id" env:"BT_BREAK_PROJECT_ID"`
	AllowedOrgs      []string      `yaml:"allowed_orgs" env:"BT_ALLOWED_ORGS"`
}

// TogglConfig holds time-tracking service settings
type TogglConfig struct {
	APIToken       string        `yaml:"api_token" env:"BT_TOGGL_API_TOKEN"`
	WorkspaceID    int64         `yaml:"workspace_id" env:"BT_TOGGL_WORKSPACE_ID"`
	BaseURL        string        `yaml:"base_url" env:"BT_TOGGL_BASE_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"BT_TOGGL_REQUEST_TIMEOUT"`
	RatePerSecond  float64       `yaml:"rate_per_second" env:"BT_TOGGL_RATE"`
}

// MondayConfig holds project-management service settings
type MondayConfig struct {
	APIToken       string        `yaml:"api_token" env:"BT_MONDAY_API_TOKEN"`
	BaseURL        string        `yaml:"base_url" env:"BT_MONDAY_BASE_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"BT_MONDAY_REQUEST_TIMEOUT"`
}

// StorageConfig holds local file locations
type StorageConfig struct {
	Dir              string `yaml:"dir" env:"BT_DATA_DIR"`
	AssociationsFile string `yaml:"associations_file" env:"BT_ASSOCIATIONS_FILE"`
	JournalFilename  string `yaml:"journal_filename" env:"BT_JOURNAL_FILENAME"`
	DirPermissions   uint32 `yaml:"dir_permissions" env:"BT_DIR_PERMISSIONS"`
}

// ApplicationConfig holds application-level configuration
type ApplicationConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"BT_APP_TIMEOUT"`
	Verbose bool          `yaml:"verbose" env:"BT_APP_VERBOSE"`
}

// NewConfig creates a new configuration with sensible defaults
func NewConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultDir := filepath.Join(homeDir, ".bt")

	return &Config{
		Tracking: TrackingConfig{
			Enabled:        true,
			TicketPattern:  DefaultTicketPattern,
			IdleTimeout:    15 * time.Minute,
			BranchInterval: 15 * time.Second,
			IdleInterval:   30 * time.Second,
			ContinueWindow: 10 * time.Minute,
			RecentDays:     7,
			Billable:       true,
		},
		Toggl: TogglConfig{
			BaseURL:        "https://api.track.toggl.com/api/v9",
			RequestTimeout: 10 * time.Second,
			RatePerSecond:  1,
		},
		Monday: MondayConfig{
			BaseURL:        "https://api.monday.com/v2",
			RequestTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Dir:              defaultDir,
			AssociationsFile: "branch-tasks.json",
			JournalFilename:  "journal.db",
			DirPermissions:   0755,
		},
		Application: ApplicationConfig{
			Timeout: 30 * time.Second,
			Verbose: false,
		},
	}
}

// GetAssociationsPath returns the full path to the branch-task side-file
func (c *Config) GetAssociationsPath() string {
	if filepath.IsAbs(c.Storage.AssociationsFile) {
		return c.Storage.AssociationsFile
	}
	return filepath.Join(c.Storage.Dir, c.Storage.AssociationsFile)
}

// GetJournalPath returns the full path to the transition journal database
func (c *Config) GetJournalPath() string {
	return filepath.Join(c.Storage.Dir, c.Storage.JournalFilename)
}

// GetFilePath returns the YAML config file location inside the data directory
func (c *Config) GetFilePath() string {
	return filepath.Join(c.Storage.Dir, "config.yaml")
}

// HasMonday reports whether task titles can be resolved
func (c *Config) HasMonday() bool {
	return c.Monday.APIToken != ""
}

// LoadFromEnvironment loads configuration from environment variables
func (c *Config) LoadFromEnvironment() error {
	// Tracking configuration
	if enabled := os.Getenv("BT_ENABLED"); enabled != "" {
		c.Tracking.Enabled = ParseBoolWithFallback(enabled, c.Tracking.Enabled)
	}
	if pattern := os.Getenv("BT_TICKET_PATTERN"); pattern != "" {
		c.Tracking.TicketPattern = pattern
	}
	if timeout := os.Getenv("BT_IDLE_TIMEOUT"); timeout != "" {
		c.Tracking.IdleTimeout = ParseDurationWithFallback(timeout, c.Tracking.IdleTimeout)
	}
	if interval := os.Getenv("BT_BRANCH_INTERVAL"); interval != "" {
		c.Tracking.BranchInterval = ParseDurationWithFallback(interval, c.Tracking.BranchInterval)
	}
	if interval := os.Getenv("BT_IDLE_INTERVAL"); interval != "" {
		c.Tracking.IdleInterval = ParseDurationWithFallback(interval, c.Tracking.IdleInterval)
	}
	if window := os.Getenv("BT_CONTINUE_WINDOW"); window != "" {
		c.Tracking.ContinueWindow = ParseDurationWithFallback(window, c.Tracking.ContinueWindow)
	}
	if days := os.Getenv("BT_RECENT_DAYS"); days != "" {
		c.Tracking.RecentDays = ParseIntWithFallback(days, c.Tracking.RecentDays)
	}
	if project := os.Getenv("BT_DEFAULT_PROJECT_ID"); project != "" {
		c.Tracking.DefaultProjectID = ParseInt64WithFallback(project, c.Tracking.DefaultProjectID)
	}
	if billable := os.Getenv("BT_BILLABLE"); billable != "" {
		c.Tracking.Billable = ParseBoolWithFallback(billable, c.Tracking.Billable)
	}
	if project := os.Getenv("BT_BREAK_PROJECT_ID"); project != "" {
		c.Tracking.BreakProjectID = ParseInt64WithFallback(project, c.Tracking.BreakProjectID)
	}
	if orgs := os.Getenv("BT_ALLOWED_ORGS"); orgs != "" {
		c.Tracking.AllowedOrgs = SplitList(orgs)
	}

	// Toggl configuration
	if token := os.Getenv("BT_TOGGL_API_TOKEN"); token != "" {
		c.Toggl.APIToken = token
	}
	if workspace := os.Getenv("BT_TOGGL_WORKSPACE_ID"); workspace != "" {
		c.Toggl.WorkspaceID = ParseInt64WithFallback(workspace, c.Toggl.WorkspaceID)
	}
	if baseURL := os.Getenv("BT_TOGGL_BASE_URL"); baseURL != "" {
		c.Toggl.BaseURL = baseURL
	}
	if timeout := os.Getenv("BT_TOGGL_REQUEST_TIMEOUT"); timeout != "" {
		c.Toggl.RequestTimeout = ParseDurationWithFallback(timeout, c.Toggl.RequestTimeout)
	}
	if rate := os.Getenv("BT_TOGGL_RATE"); rate != "" {
		if r, err := strconv.ParseFloat(rate, 64); err == nil {
			c.Toggl.RatePerSecond = r
		}
	}

	// Monday configuration
	if token := os.Getenv("BT_MONDAY_API_TOKEN"); token != "" {
		c.Monday.APIToken = token
	}
	if baseURL := os.Getenv("BT_MONDAY_BASE_URL"); baseURL != "" {
		c.Monday.BaseURL = baseURL
	}
	if timeout := os.Getenv("BT_MONDAY_REQUEST_TIMEOUT"); timeout != "" {
		c.Monday.RequestTimeout = ParseDurationWithFallback(timeout, c.Monday.RequestTimeout)
	}

	// Storage configuration
	if dir := os.Getenv("BT_DATA_DIR"); dir != "" {
		c.Storage.Dir = dir
	}
	if file := os.Getenv("BT_ASSOCIATIONS_FILE"); file != "" {
		c.Storage.AssociationsFile = file
	}
	if filename := os.Getenv("BT_JOURNAL_FILENAME"); filename != "" {
		c.Storage.JournalFilename = filename
	}
	if perms := os.Getenv("BT_DIR_PERMISSIONS"); perms != "" {
		c.Storage.DirPermissions = ParseUint32WithFallback(perms, 8, c.Storage.DirPermissions)
	}

	// Application configuration
	if timeout := os.Getenv("BT_APP_TIMEOUT"); timeout != "" {
		c.Application.Timeout = ParseDurationWithFallback(timeout, c.Application.Timeout)
	}
	if verbose := os.Getenv("BT_APP_VERBOSE"); verbose != "" {
		c.Application.Verbose = ParseBoolWithFallback(verbose, c.Application.Verbose)
	}

	return nil
}

// Validate checks settings every command needs. Credentials are checked
// separately by ValidateCredentials because only commands that talk to the
// time-tracking service require them.
func (c *Config) Validate() error {
	// Tracking configuration
	if c.Tracking.TicketPattern == "" {
		return &ConfigError{Field: "tracking.ticket_pattern", Message: "ticket pattern cannot be empty"}
	}
	if _, err := regexp.Compile(c.Tracking.TicketPattern); err != nil {
		return &ConfigError{Field: "tracking.ticket_pattern", Message: "ticket pattern is not a valid regular expression: " + err.Error()}
	}
	if c.Tracking.IdleTimeout <= 0 {
		return &ConfigError{Field: "tracking.idle_timeout", Message: "idle timeout must be positive"}
	}
	if c.Tracking.BranchInterval <= 0 {
		return &ConfigError{Field: "tracking.branch_interval", Message: "branch check interval must be positive"}
	}
	if c.Tracking.IdleInterval <= 0 {
		return &ConfigError{Field: "tracking.idle_interval", Message: "idle check interval must be positive"}
	}
	if c.Tracking.ContinueWindow < 0 {
		return &ConfigError{Field: "tracking.continue_window", Message: "continue window cannot be negative"}
	}
	if c.Tracking.RecentDays < 1 {
		return &ConfigError{Field: "tracking.recent_days", Message: "recent days must be at least 1"}
	}

	// Toggl configuration
	if c.Toggl.BaseURL == "" {
		return &ConfigError{Field: "toggl.base_url", Message: "base url cannot be empty"}
	}
	if c.Toggl.RequestTimeout <= 0 {
		return &ConfigError{Field: "toggl.request_timeout", Message: "request timeout must be positive"}
	}
	if c.Toggl.RatePerSecond <= 0 {
		return &ConfigError{Field: "toggl.rate_per_second", Message: "rate must be positive"}
	}

	// Monday configuration
	if c.Monday.BaseURL == "" {
		return &ConfigError{Field: "monday.base_url", Message: "base url cannot be empty"}
	}
	if c.Monday.RequestTimeout <= 0 {
		return &ConfigError{Field: "monday.request_timeout", Message: "request timeout must be positive"}
	}

	// Storage configuration
	if c.Storage.Dir == "" {
		return &ConfigError{Field: "storage.dir", Message: "data directory cannot be empty"}
	}
	if c.Storage.AssociationsFile == "" {
		return &ConfigError{Field: "storage.associations_file", Message: "associations file cannot be empty"}
	}
	if c.Storage.JournalFilename == "" {
		return &ConfigError{Field: "storage.journal_filename", Message: "journal filename cannot be empty"}
	}

	// Application configuration
	if c.Application.Timeout <= 0 {
		return &ConfigError{Field: "application.timeout", Message: "application timeout must be positive"}
	}

	return nil
}

// ValidateCredentials checks the time-tracking credentials
func (c *Config) ValidateCredentials() error {
	if strings.TrimSpace(c.Toggl.APIToken) == "" {
		return &ConfigError{Field: "toggl.api_token", Message: "api token is required (set BT_TOGGL_API_TOKEN)"}
	}
	if c.Toggl.WorkspaceID <= 0 {
		return &ConfigError{Field: "toggl.workspace_id", Message: "workspace id is required (set BT_TOGGL_WORKSPACE_ID)"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

// SplitList splits a comma separated list, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
