package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetterDefaults(t *testing.T) {
	// Test that getter methods return expected defaults when pointers are nil
	cfg := EmptyTuningConfig()

	if cfg.GetFilterConstant() != 100.0 {
		t.Errorf("GetFilterConstant() = %f, want 100", cfg.GetFilterConstant())
	}
	if cfg.GetCoPForceThreshold() != 0.5 {
		t.Errorf("GetCoPForceThreshold() = %f, want 0.5", cfg.GetCoPForceThreshold())
	}
	if cfg.GetMaxSamples() != 12*60*60*20 {
		t.Errorf("GetMaxSamples() = %d, want 864000", cfg.GetMaxSamples())
	}
	if cfg.GetPollInterval() != time.Second {
		t.Errorf("GetPollInterval() = %v, want 1s", cfg.GetPollInterval())
	}
	if cfg.GetChartSpanSeconds() != 300.0 {
		t.Errorf("GetChartSpanSeconds() = %f, want 300", cfg.GetChartSpanSeconds())
	}
}

func TestGettersReturnSetValues(t *testing.T) {
	cfg := &TuningConfig{
		FilterConstant:    ptrFloat64(10.0),
		CoPForceThreshold: ptrFloat64(0.25),
		MaxSamples:        ptrInt(1000),
		PollInterval:      ptrString("250ms"),
		ChartSpanSeconds:  ptrFloat64(60.0),
	}

	if cfg.GetFilterConstant() != 10.0 {
		t.Errorf("GetFilterConstant() = %f, want 10", cfg.GetFilterConstant())
	}
	if cfg.GetCoPForceThreshold() != 0.25 {
		t.Errorf("GetCoPForceThreshold() = %f, want 0.25", cfg.GetCoPForceThreshold())
	}
	if cfg.GetMaxSamples() != 1000 {
		t.Errorf("GetMaxSamples() = %d, want 1000", cfg.GetMaxSamples())
	}
	if cfg.GetPollInterval() != 250*time.Millisecond {
		t.Errorf("GetPollInterval() = %v, want 250ms", cfg.GetPollInterval())
	}
	if cfg.GetChartSpanSeconds() != 60.0 {
		t.Errorf("GetChartSpanSeconds() = %f, want 60", cfg.GetChartSpanSeconds())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	// Create temporary directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	// Write test config with flat schema
	testJSON := `{
  "filter_constant": 50.0,
  "cop_force_threshold": 1.0,
  "max_samples": 72000,
  "poll_interval": "2s",
  "chart_span_seconds": 120.0
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	// Load the config
	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify values
	if cfg.FilterConstant == nil || *cfg.FilterConstant != 50.0 {
		t.Errorf("Expected FilterConstant 50, got %v", cfg.FilterConstant)
	}
	if cfg.CoPForceThreshold == nil || *cfg.CoPForceThreshold != 1.0 {
		t.Errorf("Expected CoPForceThreshold 1, got %v", cfg.CoPForceThreshold)
	}
	if cfg.MaxSamples == nil || *cfg.MaxSamples != 72000 {
		t.Errorf("Expected MaxSamples 72000, got %v", cfg.MaxSamples)
	}
	if cfg.GetPollInterval() != 2*time.Second {
		t.Errorf("GetPollInterval() = %v, want 2s", cfg.GetPollInterval())
	}
	if cfg.GetChartSpanSeconds() != 120.0 {
		t.Errorf("GetChartSpanSeconds() = %f, want 120", cfg.GetChartSpanSeconds())
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	// Only one field set; everything else falls back to defaults.
	if err := os.WriteFile(configPath, []byte(`{"filter_constant": 2.0}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetFilterConstant() != 2.0 {
		t.Errorf("GetFilterConstant() = %f, want 2", cfg.GetFilterConstant())
	}
	if cfg.GetCoPForceThreshold() != 0.5 {
		t.Errorf("GetCoPForceThreshold() = %f, want default 0.5", cfg.GetCoPForceThreshold())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadTuningConfig("tuning.yaml"); err == nil {
		t.Error("Expected error for non-JSON extension")
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"empty", EmptyTuningConfig(), false},
		{"zero filter constant", &TuningConfig{FilterConstant: ptrFloat64(0)}, false},
		{"negative filter constant", &TuningConfig{FilterConstant: ptrFloat64(-1)}, true},
		{"negative threshold", &TuningConfig{CoPForceThreshold: ptrFloat64(-0.1)}, true},
		{"zero max samples", &TuningConfig{MaxSamples: ptrInt(0)}, true},
		{"bad poll interval", &TuningConfig{PollInterval: ptrString("soon")}, true},
		{"zero chart span", &TuningConfig{ChartSpanSeconds: ptrFloat64(0)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetFilterConstant() != 100.0 {
		t.Errorf("defaults file filter_constant = %f, want 100", cfg.GetFilterConstant())
	}
	if cfg.GetCoPForceThreshold() != 0.5 {
		t.Errorf("defaults file cop_force_threshold = %f, want 0.5", cfg.GetCoPForceThreshold())
	}
}
