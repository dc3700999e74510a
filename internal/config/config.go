// =============================================================================
// Report Consolidator - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the per-form
// auto-mapping definitions.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Form Configs (forms/*.yaml, *.yml, *.toml): One alias table per form
//   3. Environment (.env and REPORTCTL_* variables): Deployment overrides
//
// PRECEDENCE (highest first):
//   environment variables > config.yaml > built-in defaults
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/report-consolidator/internal/storage"
)

// Environment variables that override config.yaml.
const (
	EnvStoreBackend = "REPORTCTL_STORE_BACKEND"
	EnvStorePath    = "REPORTCTL_STORE_PATH"
	EnvBackendURL   = "REPORTCTL_BACKEND_URL"
	EnvServerAddr   = "REPORTCTL_SERVER_ADDR"
	EnvLogLevel     = "REPORTCTL_LOG_LEVEL"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned by `process` for spreadsheets to auto-map.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives mapping files, summaries and exports.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// FormsDir holds the form definition files.
	// Default: "./configs/forms"
	FormsDir string `yaml:"forms_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile additionally receives every log line. Empty disables it.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the base name of generated files.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {time}      - Current time (HHMMSS)
	//   {title}     - Report or source file title
	//
	// Default: "{title}_{timestamp}"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// =========================================================================
	// COMPONENT SETTINGS
	// =========================================================================

	Store   StoreConfig   `yaml:"store"`
	Backend BackendConfig `yaml:"backend"`
	Server  ServerConfig  `yaml:"server"`
}

// StoreConfig selects where consolidated reports are persisted.
type StoreConfig struct {
	// Backend is "file", "sqlite" or "memory". Default: "file"
	Backend string `yaml:"backend"`

	// Path is the directory (file) or database file (sqlite).
	// Default: "./data" for file, "./data/reports.db" for sqlite
	Path string `yaml:"path"`

	// Key is the storage key of the consolidated blob.
	// Default: "consolidatedReports"
	Key string `yaml:"key"`
}

// BackendConfig points at the calculation/rendering backend.
type BackendConfig struct {
	// URL is the backend base URL, e.g. "http://localhost:8000".
	URL string `yaml:"url"`

	// PPTPath is the consolidated PPT endpoint path.
	// Default: "/api/generate-consolidated-ppt"
	PPTPath string `yaml:"ppt_path"`

	// Timeout bounds one backend call. Default: 2m
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures `serve`.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8080"
	Addr string `yaml:"addr"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadEnv loads .env style files into the process environment. Missing files
// are skipped; variables already set are not overwritten.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file
//     is not an error; defaults and the environment are used instead.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&config)
	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides copies REPORTCTL_* variables over file values.
func applyEnvOverrides(config *MainConfig) {
	if v := os.Getenv(EnvStoreBackend); v != "" {
		config.Store.Backend = v
	}
	if v := os.Getenv(EnvStorePath); v != "" {
		config.Store.Path = v
	}
	if v := os.Getenv(EnvBackendURL); v != "" {
		config.Backend.URL = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		config.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.LogLevel = v
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.FormsDir == "" {
		config.FormsDir = "./configs/forms"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{title}_{timestamp}"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}

	config.Store.Backend = strings.ToLower(strings.TrimSpace(config.Store.Backend))
	if config.Store.Backend == "" {
		config.Store.Backend = storage.BackendFile
	}
	if config.Store.Path == "" {
		switch config.Store.Backend {
		case storage.BackendSQLite:
			config.Store.Path = "./data/reports.db"
		case storage.BackendFile:
			config.Store.Path = "./data"
		}
	}
	if config.Store.Key == "" {
		config.Store.Key = "consolidatedReports"
	}

	if config.Backend.PPTPath == "" {
		config.Backend.PPTPath = "/api/generate-consolidated-ppt"
	}
	if config.Backend.Timeout <= 0 {
		config.Backend.Timeout = 2 * time.Minute
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch config.Store.Backend {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		return fmt.Errorf("store.backend must be file, sqlite or memory, got %q", config.Store.Backend)
	}

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", config.LogLevel)
	}

	if config.Backend.URL != "" && !strings.HasPrefix(config.Backend.URL, "http://") && !strings.HasPrefix(config.Backend.URL, "https://") {
		return fmt.Errorf("backend.url must start with http:// or https://, got %q", config.Backend.URL)
	}

	return nil
}

// EnsureDirectories creates the input and output directories.
func (c *MainConfig) EnsureDirectories() error {
	for _, dir := range []string{c.InputDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogFilePath returns the log file path, relative paths resolved against
// base.
func (c *MainConfig) LogFilePath(base string) string {
	if c.LogFile == "" || filepath.IsAbs(c.LogFile) {
		return c.LogFile
	}
	return filepath.Join(base, c.LogFile)
}
