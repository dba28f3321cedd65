// ABOUTME: Configuration loading and parsing for chillman
// ABOUTME: Supports YAML or TOML files with ${VAR} expansion, CHILLMAN_* overrides and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the complete chillman configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Bootstrap BootstrapConfig `yaml:"bootstrap" toml:"bootstrap"`
	Security  SecurityConfig  `yaml:"security" toml:"security"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path        string        `yaml:"path" toml:"path" env:"CHILLMAN_DB_PATH"`
	BusyTimeout time.Duration `yaml:"-" toml:"-" env:"CHILLMAN_DB_BUSY_TIMEOUT"`

	// Raw string value for file unmarshaling
	BusyTimeoutRaw string `yaml:"busy_timeout" toml:"busy_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"CHILLMAN_LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"CHILLMAN_LOG_FORMAT"`
}

// BootstrapConfig holds the administrator seeded into an empty users table
type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username" toml:"admin_username" env:"CHILLMAN_ADMIN_USERNAME"`
	AdminPassword string `yaml:"admin_password" toml:"admin_password" env:"CHILLMAN_ADMIN_PASSWORD"`
}

// SecurityConfig holds credential hashing settings
type SecurityConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" toml:"bcrypt_cost" env:"CHILLMAN_BCRYPT_COST"`
}

// Default returns a configuration usable without any file.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "chillman.db",
			BusyTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: "admin",
			AdminPassword: "admin123",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// The format is chosen by extension (.yaml, .yml or .toml). Values missing
// from the file keep their Default. Environment variables in the format
// ${VAR_NAME} are expanded, then CHILLMAN_* variables override the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	return finish(cfg)
}

// FromEnv returns Default with CHILLMAN_* overrides applied.
func FromEnv() (*Config, error) {
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	if c.Bootstrap.AdminUsername == "" && c.Bootstrap.AdminPassword != "" {
		return fmt.Errorf("bootstrap.admin_username is required when admin_password is set")
	}
	if c.Bootstrap.AdminUsername != "" && c.Bootstrap.AdminPassword == "" {
		return fmt.Errorf("bootstrap.admin_password is required when admin_username is set")
	}

	// 0 selects bcrypt's default; otherwise bcrypt accepts 4..31.
	if cost := c.Security.BcryptCost; cost != 0 && (cost < 4 || cost > 31) {
		return fmt.Errorf("security.bcrypt_cost %d out of range 4..31", cost)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Database.BusyTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Database.BusyTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing busy_timeout %q: %w", cfg.Database.BusyTimeoutRaw, err)
		}
		cfg.Database.BusyTimeout = d
	}
	return nil
}
