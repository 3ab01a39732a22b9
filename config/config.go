// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Modules    ModulesConfig    `yaml:"modules"`
	List       ListConfig       `yaml:"list"`
	Export     ExportConfig     `yaml:"export"`
	Navigation NavigationConfig `yaml:"navigation"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`

	// Locale selects validation messages: "vi" or "en".
	Locale string `yaml:"locale"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the database. Records go to Driver; the
// preference store always uses the SQLite file at PrefsDSN.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "postgres"
	DSN      string `yaml:"dsn"`
	PrefsDSN string `yaml:"prefs_dsn"`
}

// ModulesConfig locates the module descriptors.
type ModulesConfig struct {
	Dir string `yaml:"dir"`
}

// ListConfig configures list paging.
type ListConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`

	// ServerSide pushes list queries to the database instead of filtering
	// every row in memory.
	ServerSide bool `yaml:"server_side"`
}

// ExportConfig configures document layout.
type ExportConfig struct {
	MinColumnWidth    float64 `yaml:"min_column_width"`
	MaxColumnWidth    float64 `yaml:"max_column_width"`
	FreezeHeader      *bool   `yaml:"freeze_header"`
	FreezeFirstColumn bool    `yaml:"freeze_first_column"`
	AutoFilter        *bool   `yaml:"auto_filter"`
	Orientation       string  `yaml:"orientation"` // "auto", "portrait" or "landscape"
	LandscapeAbove    int     `yaml:"landscape_above"`

	// PDFFont is a UTF-8 TrueType font for PDF output.
	PDFFont string `yaml:"pdf_font"`
}

// NavigationConfig overrides the create/edit path tokens.
type NavigationConfig struct {
	CreateToken   string   `yaml:"create_token"`
	EditToken     string   `yaml:"edit_token"`
	CreateAliases []string `yaml:"create_aliases"`
	EditAliases   []string `yaml:"edit_aliases"`
}

// SessionsConfig configures the per-session filter state.
type SessionsConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables already set. Missing files are
// skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML. ${VAR} references are expanded
// and ERPKIT_* variables override file values.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when it exists and otherwise builds the
// configuration from defaults and environment variables alone.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Parse(nil)
}

// applyEnvOverrides applies ERPKIT_* environment variables to the config.
// Environment variables always override file-based configuration.
//
//	ERPKIT_SERVER_HOST        - Server host (default: 0.0.0.0)
//	ERPKIT_SERVER_PORT        - Server port (default: 8080)
//	ERPKIT_DATABASE_DRIVER    - sqlite or postgres (default: sqlite)
//	ERPKIT_DATABASE_DSN       - Database path or Postgres URL
//	ERPKIT_DATABASE_PREFS_DSN - SQLite file for preferences
//	ERPKIT_MODULES_DIR        - Module descriptor directory
//	ERPKIT_LIST_SERVER_SIDE   - Push list queries to the database
//	ERPKIT_EXPORT_PDF_FONT    - TrueType font for PDF export
//	ERPKIT_LOG_LEVEL          - debug, info, warn, error (default: info)
//	ERPKIT_LOG_FORMAT         - json or console (default: json)
//	ERPKIT_METRICS_ENABLED    - Enable /metrics (default: false)
//	ERPKIT_LOCALE             - vi or en (default: vi)
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ERPKIT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ERPKIT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ERPKIT_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("ERPKIT_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("ERPKIT_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("ERPKIT_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("ERPKIT_DATABASE_PREFS_DSN"); v != "" {
		cfg.Database.PrefsDSN = v
	}

	if v := os.Getenv("ERPKIT_MODULES_DIR"); v != "" {
		cfg.Modules.Dir = v
	}
	if v := os.Getenv("ERPKIT_LIST_SERVER_SIDE"); v != "" {
		cfg.List.ServerSide = parseBool(v)
	}
	if v := os.Getenv("ERPKIT_EXPORT_PDF_FONT"); v != "" {
		cfg.Export.PDFFont = v
	}

	if v := os.Getenv("ERPKIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ERPKIT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("ERPKIT_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("ERPKIT_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	if v := os.Getenv("ERPKIT_LOCALE"); v != "" {
		cfg.Locale = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "erpkit.db"
	}
	if cfg.Database.PrefsDSN == "" {
		cfg.Database.PrefsDSN = "erpkit-prefs.db"
		if cfg.Database.Driver == "sqlite" {
			cfg.Database.PrefsDSN = cfg.Database.DSN
		}
	}

	if cfg.Modules.Dir == "" {
		cfg.Modules.Dir = "modules"
	}

	if cfg.List.DefaultPageSize == 0 {
		cfg.List.DefaultPageSize = 50
	}

	if cfg.Export.MinColumnWidth == 0 {
		cfg.Export.MinColumnWidth = 10
	}
	if cfg.Export.MaxColumnWidth == 0 {
		cfg.Export.MaxColumnWidth = 50
	}
	if cfg.Export.FreezeHeader == nil {
		t := true
		cfg.Export.FreezeHeader = &t
	}
	if cfg.Export.AutoFilter == nil {
		t := true
		cfg.Export.AutoFilter = &t
	}
	if cfg.Export.Orientation == "" {
		cfg.Export.Orientation = "auto"
	}
	if cfg.Export.LandscapeAbove == 0 {
		cfg.Export.LandscapeAbove = 6
	}

	if cfg.Navigation.CreateToken == "" {
		cfg.Navigation.CreateToken = "create"
	}
	if cfg.Navigation.EditToken == "" {
		cfg.Navigation.EditToken = "edit"
	}
	if cfg.Navigation.CreateAliases == nil {
		cfg.Navigation.CreateAliases = []string{"moi"}
	}
	if cfg.Navigation.EditAliases == nil {
		cfg.Navigation.EditAliases = []string{"sua"}
	}

	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = 12 * time.Hour
	}
	if cfg.Sessions.SweepInterval == 0 {
		cfg.Sessions.SweepInterval = 10 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Locale == "" {
		cfg.Locale = "vi"
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when database.driver is 'postgres'")
		}
	default:
		return fmt.Errorf("database.driver must be 'sqlite' or 'postgres', got %q", cfg.Database.Driver)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.List.DefaultPageSize < 10 {
		return fmt.Errorf("list.default_page_size must be at least 10, got %d", cfg.List.DefaultPageSize)
	}

	if cfg.Export.MinColumnWidth < 1 || cfg.Export.MaxColumnWidth < cfg.Export.MinColumnWidth {
		return fmt.Errorf("export column widths must satisfy 1 <= min <= max, got %g..%g",
			cfg.Export.MinColumnWidth, cfg.Export.MaxColumnWidth)
	}
	validOrientations := map[string]bool{"auto": true, "portrait": true, "landscape": true}
	if !validOrientations[cfg.Export.Orientation] {
		return fmt.Errorf("export.orientation must be 'auto', 'portrait' or 'landscape', got %q", cfg.Export.Orientation)
	}

	if cfg.Navigation.CreateToken == cfg.Navigation.EditToken {
		return fmt.Errorf("navigation tokens must differ, both are %q", cfg.Navigation.CreateToken)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Locale != "vi" && cfg.Locale != "en" {
		return fmt.Errorf("locale must be 'vi' or 'en', got %q", cfg.Locale)
	}
	return nil
}
