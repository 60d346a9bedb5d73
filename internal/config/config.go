package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the client configuration.
type Config struct {
	// ServerURL is the base URL of the analysis pipeline API.
	ServerURL string `yaml:"server_url"`
	// Password is the access-gate password. Empty disables the gate check.
	Password string `yaml:"password"`

	// CaselensHome is the directory where caselens stores local state
	// (archive, config file).
	CaselensHome string `yaml:"-"`
	// ArchivePath is the path to the archive file.
	ArchivePath string `yaml:"-"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`
}

const (
	defaultServerURL = "http://localhost:8000"
	configFileName   = "config.yaml"
	archiveFileName  = "archive.json"
)

// Load loads configuration from the optional YAML config file, then applies
// environment overrides and defaults. The caselens home directory is created
// if it does not exist.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	caselensHome := os.Getenv("CASELENS_HOME_DIR")
	if caselensHome == "" {
		caselensHome = filepath.Join(homeDir, ".caselens")
	}
	if err := os.MkdirAll(caselensHome, 0700); err != nil {
		return nil, fmt.Errorf("failed to create caselens home: %w", err)
	}

	cfg := &Config{
		CaselensHome: caselensHome,
		ArchivePath:  filepath.Join(caselensHome, archiveFileName),
	}

	if err := cfg.readFile(filepath.Join(caselensHome, configFileName)); err != nil {
		return nil, err
	}

	if v := os.Getenv("CASELENS_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("CASELENS_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("CASELENS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CASELENS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	return cfg, nil
}

// readFile merges values from a YAML config file. A missing file is not an
// error; a malformed one is.
func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
