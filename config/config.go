package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the storycatcher client configuration. Values come from
// defaults, then ~/.storycatcher/config.json, then environment
// variables, later sources winning.
type Config struct {
	APIBaseURL        string `json:"api_base_url" env:"STORYCATCHER_API_URL" env-default:"http://localhost:5000/api"`
	RequestTimeoutSec int    `json:"request_timeout_seconds" env:"STORYCATCHER_TIMEOUT_SECONDS" env-default:"30"`
	LogFile           string `json:"log_file" env:"STORYCATCHER_LOG_FILE"`
	Debug             bool   `json:"debug" env:"STORYCATCHER_DEBUG" env-default:"false"`
}

// RequestTimeout returns the per-request timeout for backend calls.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// AppDir returns the user-level storycatcher directory (~/.storycatcher).
func AppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".storycatcher"), nil
}

// EnsureAppDir creates the storycatcher directory if it doesn't exist.
func EnsureAppDir() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// Load reads configuration from the config file and the environment.
func Load() (*Config, error) {
	dir, err := AppDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "config.json"))
}

// LoadFrom reads configuration from a specific file path, falling back
// to defaults and environment variables when the file is absent.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to ~/.storycatcher/config.json.
func Save(cfg *Config) error {
	dir, err := EnsureAppDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Get retrieves a configuration value by key.
func (c *Config) Get(key string) (interface{}, error) {
	switch key {
	case "api_base_url":
		return c.APIBaseURL, nil
	case "request_timeout_seconds":
		return c.RequestTimeoutSec, nil
	case "log_file":
		return c.LogFile, nil
	case "debug":
		return c.Debug, nil
	default:
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
}

// Set updates a configuration value by key. CLI input is always a
// string.
func (c *Config) Set(key string, value string) error {
	switch key {
	case "api_base_url":
		c.APIBaseURL = value
		return nil
	case "request_timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("expected a positive number of seconds for request_timeout_seconds, got: %s", value)
		}
		c.RequestTimeoutSec = n
		return nil
	case "log_file":
		c.LogFile = value
		return nil
	case "debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected 'true' or 'false' for debug, got: %s", value)
		}
		c.Debug = b
		return nil
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}
