package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/grimcheck/pkg/debit"
	"github.com/iwvelando/grimcheck/pkg/rounding"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grimcheck.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfigurationDefaultsWhenMissing(t *testing.T) {
	config, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	defaults := Defaults()
	if config.Output.Format != defaults.Output.Format {
		t.Errorf("Expected output format %s, got %s", defaults.Output.Format, config.Output.Format)
	}
	if config.Checks.Threshold != 5 {
		t.Errorf("Expected threshold 5, got %v", config.Checks.Threshold)
	}
	if config.Checks.Tolerance != defaults.Checks.Tolerance {
		t.Errorf("Expected tolerance %v, got %v", defaults.Checks.Tolerance, config.Checks.Tolerance)
	}
	if len(config.Checks.Rounding) != 1 || config.Checks.Rounding[0] != "up_or_down" {
		t.Errorf("Expected rounding [up_or_down], got %v", config.Checks.Rounding)
	}
	if config.Checks.Items != 1 {
		t.Errorf("Expected items 1, got %d", config.Checks.Items)
	}
	if config.Simrank.MaxIter != 100000 || config.Simrank.Length != 1 {
		t.Errorf("Unexpected simrank defaults %+v", config.Simrank)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestLoadConfigurationOverrides(t *testing.T) {
	path := writeConfig(t, `logging:
  level: debug
  format: console
  outputFile: /tmp/grimcheck.log
output:
  format: csv
checks:
  rounding: [up_from, even]
  threshold: 4
  percent: true
  formula: groups
simrank:
  workers: 3
  maxIter: 500
  length: 4
`)

	config, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.Logging.Level != "debug" || config.Logging.Format != "console" {
		t.Errorf("Unexpected logging config %+v", config.Logging)
	}
	if config.Logging.OutputFile != "/tmp/grimcheck.log" {
		t.Errorf("Expected outputFile /tmp/grimcheck.log, got %s", config.Logging.OutputFile)
	}
	if config.Output.Format != "csv" {
		t.Errorf("Expected output format csv, got %s", config.Output.Format)
	}
	if config.Checks.Threshold != 4 || !config.Checks.Percent {
		t.Errorf("Unexpected checks config %+v", config.Checks)
	}
	if config.Checks.Items != 1 {
		t.Errorf("Expected default items to survive partial checks section, got %d", config.Checks.Items)
	}
	if config.Simrank.Workers != 3 || config.Simrank.MaxIter != 500 || config.Simrank.Length != 4 {
		t.Errorf("Unexpected simrank config %+v", config.Simrank)
	}

	opts, err := config.GrimOptions()
	if err != nil {
		t.Fatalf("GrimOptions() error = %v", err)
	}
	if len(opts.Modes) != 2 || opts.Modes[0] != rounding.UpFrom || opts.Modes[1] != rounding.Even {
		t.Errorf("Unexpected modes %v", opts.Modes)
	}
	if !opts.Percent || opts.Threshold != 4 {
		t.Errorf("Unexpected GRIM options %+v", opts)
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("GRIMCHECK_OUTPUT_FORMAT", "json")
	t.Setenv("GRIMCHECK_CHECKS_THRESHOLD", "6")

	config, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if config.Output.Format != "json" {
		t.Errorf("Expected env output format json, got %s", config.Output.Format)
	}
	if config.Checks.Threshold != 6 {
		t.Errorf("Expected env threshold 6, got %v", config.Checks.Threshold)
	}
}

func TestLoadConfigurationInvalidYaml(t *testing.T) {
	path := writeConfig(t, "checks: [unclosed")
	if _, err := LoadConfiguration(path); err == nil {
		t.Fatal("expected error for invalid YAML but got nil")
	}
}

func TestLoadConfigurationFromReader(t *testing.T) {
	config, err := LoadConfigurationFromReader(strings.NewReader("checks:\n  formula: 1_n\n  rounding: [ceiling]\n"))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	opts, err := config.DebitOptions()
	if err != nil {
		t.Fatalf("DebitOptions() error = %v", err)
	}
	if opts.Formula != debit.OneN || opts.Mode != rounding.Ceiling {
		t.Errorf("Unexpected DEBIT options %+v", opts)
	}
}

func TestOptionErrors(t *testing.T) {
	config := Defaults()
	config.Checks.Rounding = []string{"sideways"}
	if _, err := config.GrimOptions(); !errors.Is(err, rounding.ErrInvalidMode) {
		t.Errorf("GrimOptions() expected ErrInvalidMode, got %v", err)
	}
	if _, err := config.GrimmerOptions(); !errors.Is(err, rounding.ErrInvalidMode) {
		t.Errorf("GrimmerOptions() expected ErrInvalidMode, got %v", err)
	}

	config = Defaults()
	config.Checks.Rounding = []string{"up", "down"}
	if _, err := config.DebitOptions(); !errors.Is(err, rounding.ErrInvalidMode) {
		t.Errorf("DebitOptions() expected ErrInvalidMode for two modes, got %v", err)
	}

	config = Defaults()
	config.Checks.Formula = "median"
	if _, err := config.DebitOptions(); !errors.Is(err, debit.ErrInvalidFormula) {
		t.Errorf("DebitOptions() expected ErrInvalidFormula, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Configuration)
		wantError bool
	}{
		{"Defaults", func(*Configuration) {}, false},
		{"Bad output format", func(c *Configuration) { c.Output.Format = "xml" }, true},
		{"Bad log level", func(c *Configuration) { c.Logging.Level = "loud" }, true},
		{"Bad log format", func(c *Configuration) { c.Logging.Format = "text" }, true},
		{"From mode at default threshold", func(c *Configuration) { c.Checks.Rounding = []string{"down_from"} }, true},
		{"Incompatible modes", func(c *Configuration) { c.Checks.Rounding = []string{"up_or_down", "up"} }, true},
		{"Bad formula", func(c *Configuration) { c.Checks.Formula = "x" }, true},
		{"Zero simrank length", func(c *Configuration) { c.Simrank.Length = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Defaults()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantError && err == nil {
				t.Errorf("Validate() expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestValidateConfiguration(t *testing.T) {
	config := Defaults()
	if warnings := config.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("Expected no warnings for defaults, got %v", warnings)
	}

	config.Checks.Threshold = 4
	if warnings := config.ValidateConfiguration(); len(warnings) != 1 {
		t.Errorf("Expected one warning for unused threshold, got %v", warnings)
	}
}
