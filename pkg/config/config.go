// Package config provides configuration loading and management for ims2tif.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
// Command-line flags override these values.
type Config struct {
	// Selection parameters for locating the array inside a container
	Selection struct {
		// Channel is the acquisition channel to extract (0-based)
		Channel int `yaml:"channel"`

		// Timepoint is the time-series frame to extract (0-based)
		Timepoint int `yaml:"timepoint"`
	} `yaml:"selection"`

	// Filter parameters for empty Z-plane removal
	Filter struct {
		// Enabled removes planes whose maximum value stays at or below Threshold
		Enabled bool `yaml:"enabled"`

		// Threshold is the pixel-value noise floor
		Threshold float64 `yaml:"threshold"`

		// Auto derives the threshold from each stack instead of using Threshold
		Auto bool `yaml:"auto"`
	} `yaml:"filter"`

	// Export parameters
	Export struct {
		// Mode is one of stack, slices, ome, compressed
		Mode string `yaml:"mode"`
	} `yaml:"export"`

	// Batch parameters
	Batch struct {
		// Recursive scans subdirectories for containers
		Recursive bool `yaml:"recursive"`

		// Overwrite converts files even when their output already exists
		Overwrite bool `yaml:"overwrite"`
	} `yaml:"batch"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Selection.Channel = 0
	cfg.Selection.Timepoint = 0

	cfg.Filter.Enabled = true
	cfg.Filter.Threshold = 10
	cfg.Filter.Auto = false

	cfg.Export.Mode = "stack"

	cfg.Batch.Recursive = false
	cfg.Batch.Overwrite = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
