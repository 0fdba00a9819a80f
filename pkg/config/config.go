// Package config provides configuration loading and management for
// fixelcfestats. It handles loading configuration from YAML files and
// provides the default values documented in spec §6, with CLI flags taking
// precedence over a loaded file, which in turn takes precedence over the
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the full application configuration.
type Config struct {
	// Stats holds the statistical/algorithmic parameters from spec §6.
	Stats struct {
		// NoTest skips permutation testing, emitting only population maps.
		NoTest bool `yaml:"notest"`

		// NumPerms is the number of permutations, in [1, 100000].
		NumPerms int `yaml:"nperms"`

		// CFEDh is the height integration step.
		CFEDh float64 `yaml:"cfe_dh"`

		// CFEExtent is the extent exponent.
		CFEExtent float64 `yaml:"cfe_e"`

		// CFEHeight is the height exponent.
		CFEHeight float64 `yaml:"cfe_h"`

		// CFEConnectivity is the connectivity exponent.
		CFEConnectivity float64 `yaml:"cfe_c"`

		// AngleDegrees is the direction-match threshold, in degrees, (0,90].
		AngleDegrees float64 `yaml:"angle"`

		// ConnectivityThreshold is the row-normalised connectivity threshold, in (0,1].
		ConnectivityThreshold float64 `yaml:"connectivity"`

		// SmoothFWHM is the Gaussian along-tract smoothing FWHM in mm (0 disables).
		SmoothFWHM float64 `yaml:"smooth"`

		// Nonstationary enables the empirical adjustment.
		Nonstationary bool `yaml:"nonstationary"`

		// NumPermsNonstationary is the permutation count for the empirical pre-pass.
		NumPermsNonstationary int `yaml:"nperms_nonstationary"`
	} `yaml:"stats"`

	// Logging controls the structured logger.
	Logging struct {
		// Level is the minimum log level: "debug", "info", "warn", "error".
		Level string `yaml:"level"`

		// JSON selects JSON log output instead of a console encoder.
		JSON bool `yaml:"json"`
	} `yaml:"logging"`

	// Progress controls progress-bar display.
	Progress struct {
		// Enabled turns progress bars on or off.
		Enabled bool `yaml:"enabled"`
	} `yaml:"progress"`
}

// DefaultConfig returns a configuration with the defaults documented in
// spec.md §6.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Stats.NoTest = false
	cfg.Stats.NumPerms = 5000
	cfg.Stats.CFEDh = 0.1
	cfg.Stats.CFEExtent = 2.0
	cfg.Stats.CFEHeight = 1.0
	cfg.Stats.CFEConnectivity = 0.1
	cfg.Stats.AngleDegrees = 30.0
	cfg.Stats.ConnectivityThreshold = 0.01
	cfg.Stats.SmoothFWHM = 10.0
	cfg.Stats.Nonstationary = false
	cfg.Stats.NumPermsNonstationary = 5000

	cfg.Logging.Level = "info"
	cfg.Logging.JSON = false

	cfg.Progress.Enabled = true

	return cfg
}

// LoadConfig loads configuration from a YAML file, starting from the
// defaults. If the file does not exist, the defaults are returned unchanged.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}
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

// SaveConfig saves the configuration to a YAML file, creating its parent
// directory if necessary.
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

// Validate checks the §6 range invariants on every option, returning the
// first violation found.
func (c *Config) Validate() error {
	if c.Stats.NumPerms < 1 || c.Stats.NumPerms > 100000 {
		return fmt.Errorf("nperms must be in [1, 100000], got %d", c.Stats.NumPerms)
	}
	if c.Stats.AngleDegrees <= 0 || c.Stats.AngleDegrees > 90 {
		return fmt.Errorf("angle must be in (0, 90], got %v", c.Stats.AngleDegrees)
	}
	if c.Stats.ConnectivityThreshold <= 0 || c.Stats.ConnectivityThreshold > 1 {
		return fmt.Errorf("connectivity must be in (0, 1], got %v", c.Stats.ConnectivityThreshold)
	}
	if c.Stats.SmoothFWHM < 0 {
		return fmt.Errorf("smooth must be >= 0, got %v", c.Stats.SmoothFWHM)
	}
	return nil
}
