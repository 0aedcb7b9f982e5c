package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// RemoteDSN is the connection string for the remote system of record.
	RemoteDSN string `yaml:"remoteDSN" validate:"required"`
	// CachePath is where the device-local snapshot lives.
	CachePath string `yaml:"cachePath,omitempty"`
	// PortalBaseURL is the base for workers' personal links.
	PortalBaseURL string `yaml:"portalBaseURL,omitempty" validate:"omitempty,url"`
}

const defaultCachePath = "crewsync-data.json"

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from crewsync.yaml. It looks
// for the config file in the current directory first, then in the user's
// home directory.
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.CachePath == "" {
		cfg.CachePath = defaultCachePath
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// findConfigFile searches for crewsync.yaml in current directory and home directory
func findConfigFile() (string, error) {
	configFileName := "crewsync.yaml"

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
