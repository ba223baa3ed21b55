package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/grip/params endpoint so the same JSON can be
// used for both startup configuration and runtime updates.
type TuningConfig struct {
	// Reconstruction params
	FilterConstant    *float64 `json:"filter_constant,omitempty"`
	CoPForceThreshold *float64 `json:"cop_force_threshold,omitempty"`
	MaxSamples        *int     `json:"max_samples,omitempty"`

	// Cache polling params
	PollInterval *string `json:"poll_interval,omitempty"` // duration string like "1s"

	// Chart params
	ChartSpanSeconds *float64 `json:"chart_span_seconds,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	// Validate FilterConstant if set
	if c.FilterConstant != nil {
		if *c.FilterConstant < 0 {
			return fmt.Errorf("filter_constant must be non-negative, got %f", *c.FilterConstant)
		}
	}

	// Validate CoPForceThreshold if set
	if c.CoPForceThreshold != nil {
		if *c.CoPForceThreshold < 0 {
			return fmt.Errorf("cop_force_threshold must be non-negative, got %f", *c.CoPForceThreshold)
		}
	}

	// Validate MaxSamples if set
	if c.MaxSamples != nil {
		if *c.MaxSamples <= 0 {
			return fmt.Errorf("max_samples must be positive, got %d", *c.MaxSamples)
		}
	}

	// Validate PollInterval can be parsed if set
	if c.PollInterval != nil && *c.PollInterval != "" {
		if _, err := time.ParseDuration(*c.PollInterval); err != nil {
			return fmt.Errorf("invalid poll_interval '%s': %w", *c.PollInterval, err)
		}
	}

	// Validate ChartSpanSeconds if set
	if c.ChartSpanSeconds != nil {
		if *c.ChartSpanSeconds <= 0 {
			return fmt.Errorf("chart_span_seconds must be positive, got %f", *c.ChartSpanSeconds)
		}
	}

	return nil
}

// GetFilterConstant returns the filter_constant value or the default.
func (c *TuningConfig) GetFilterConstant() float64 {
	if c.FilterConstant == nil {
		return 100.0 // default
	}
	return *c.FilterConstant
}

// GetCoPForceThreshold returns the cop_force_threshold value or the default.
func (c *TuningConfig) GetCoPForceThreshold() float64 {
	if c.CoPForceThreshold == nil {
		return 0.5 // default, newtons
	}
	return *c.CoPForceThreshold
}

// GetMaxSamples returns the max_samples value or the default.
func (c *TuningConfig) GetMaxSamples() int {
	if c.MaxSamples == nil {
		return 12 * 60 * 60 * 20 // default: 12 hours at 20 Hz
	}
	return *c.MaxSamples
}

// GetPollInterval parses and returns the PollInterval as a time.Duration.
func (c *TuningConfig) GetPollInterval() time.Duration {
	if c.PollInterval == nil || *c.PollInterval == "" {
		return time.Second // default
	}
	d, err := time.ParseDuration(*c.PollInterval)
	if err != nil {
		return time.Second // default on parse error
	}
	return d
}

// GetChartSpanSeconds returns the chart_span_seconds value or the default.
func (c *TuningConfig) GetChartSpanSeconds() float64 {
	if c.ChartSpanSeconds == nil {
		return 300.0 // default: 5 minutes of data per chart
	}
	return *c.ChartSpanSeconds
}
