// Package config provides configuration loading and management for
// ipread. It handles loading defaults from YAML files so recurring
// scanner setups do not need to be repeated on the command line.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ipread/pkg/plate"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Exposure thresholds used for masking during HDR assembly,
	// expressed in the units of the chosen fusion domain. Zero selects
	// the domain's built-in default.
	Thresholds struct {
		// OverexposedCeiling marks pixels as saturated above this value
		OverexposedCeiling float64 `yaml:"overexposedCeiling"`

		// UnderexposedFloor marks pixels as noise below this value
		UnderexposedFloor float64 `yaml:"underexposedFloor"`
	} `yaml:"thresholds"`

	// Assembly parameters
	Assembly struct {
		// Domain selects the fusion scale: "raw" or "psl"
		Domain string `yaml:"domain"`
	} `yaml:"assembly"`

	// Output parameters
	Output struct {
		// LogScale renders images with log10 display scaling
		LogScale bool `yaml:"logScale"`

		// PreviewMaxDim bounds the longer side of preview images
		PreviewMaxDim int `yaml:"previewMaxDim"`

		// Verbose enables diagnostic output of intermediate quotient
		// images
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// zero thresholds defer to the fusion domain's defaults
	cfg.Thresholds.OverexposedCeiling = 0
	cfg.Thresholds.UnderexposedFloor = 0

	cfg.Assembly.Domain = plate.DomainRaw.String()

	cfg.Output.LogScale = false
	cfg.Output.PreviewMaxDim = 512
	cfg.Output.Verbose = false

	return cfg
}

// AssemblerOptions converts the configuration into plate options.
func (cfg *Config) AssemblerOptions() (plate.Options, error) {
	domain, err := plate.ParseDomain(cfg.Assembly.Domain)
	if err != nil {
		return plate.Options{}, fmt.Errorf("invalid config: %w", err)
	}
	return plate.Options{
		OverexposedCeiling: cfg.Thresholds.OverexposedCeiling,
		UnderexposedFloor:  cfg.Thresholds.UnderexposedFloor,
		Domain:             domain,
	}, nil
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
