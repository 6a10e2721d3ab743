// Package config defines the data structures related to configuration and
// includes functions for loading the config and turning it into check options.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/iwvelando/grimcheck/pkg/constants"
	"github.com/iwvelando/grimcheck/pkg/debit"
	"github.com/iwvelando/grimcheck/pkg/grim"
	"github.com/iwvelando/grimcheck/pkg/grimmer"
	"github.com/iwvelando/grimcheck/pkg/rounding"
	"github.com/iwvelando/grimcheck/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for grimcheck.
type Configuration struct {
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
	Checks  ChecksConfig  `yaml:"checks,omitempty"`
	Simrank SimrankConfig `yaml:"simrank,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// ChecksConfig holds the defaults shared by GRIM, GRIMMER and DEBIT.
type ChecksConfig struct {
	Rounding  []string `yaml:"rounding,omitempty"`
	Threshold float64  `yaml:"threshold,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
	Symmetric bool     `yaml:"symmetric,omitempty"`
	Items     uint     `yaml:"items,omitempty"`
	Percent   bool     `yaml:"percent,omitempty"`
	Formula   string   `yaml:"formula,omitempty"` // mean_n, 0_n, 1_n, groups
}

// SimrankConfig holds the rank sampler defaults.
type SimrankConfig struct {
	Workers int `yaml:"workers,omitempty"` // 0 means one per CPU
	MaxIter int `yaml:"maxIter,omitempty"`
	Length  int `yaml:"length,omitempty"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("checks.rounding", []string{rounding.UpOrDown.String()})
	v.SetDefault("checks.threshold", constants.DefaultThreshold)
	v.SetDefault("checks.tolerance", constants.SqrtEpsilon)
	v.SetDefault("checks.symmetric", false)
	v.SetDefault("checks.items", constants.DefaultItems)
	v.SetDefault("checks.percent", false)
	v.SetDefault("checks.formula", debit.MeanN.String())
	v.SetDefault("simrank.workers", 0)
	v.SetDefault("simrank.maxIter", constants.DefaultMaxIter)
	v.SetDefault("simrank.length", constants.DefaultSimrankLength)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	return &configuration, nil
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Configuration {
	return &Configuration{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Output:  OutputConfig{Format: constants.OutputFormatPretty},
		Checks: ChecksConfig{
			Rounding:  []string{rounding.UpOrDown.String()},
			Threshold: constants.DefaultThreshold,
			Tolerance: constants.SqrtEpsilon,
			Items:     constants.DefaultItems,
			Formula:   debit.MeanN.String(),
		},
		Simrank: SimrankConfig{
			MaxIter: constants.DefaultMaxIter,
			Length:  constants.DefaultSimrankLength,
		},
	}
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. A missing file leaves the defaults in place.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file, %w", err)
		}
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %w", err)
	}

	return decode(v)
}

// Modes parses the configured rounding modes.
func (c ChecksConfig) Modes() ([]rounding.Mode, error) {
	return rounding.ParseModes(c.Rounding)
}

// GrimOptions converts the configured defaults into GRIM options.
func (c *Configuration) GrimOptions() (grim.Options, error) {
	modes, err := c.Checks.Modes()
	if err != nil {
		return grim.Options{}, err
	}
	return grim.Options{
		Items:     c.Checks.Items,
		Percent:   c.Checks.Percent,
		Modes:     modes,
		Threshold: c.Checks.Threshold,
		Symmetric: c.Checks.Symmetric,
		Tolerance: c.Checks.Tolerance,
	}, nil
}

// GrimmerOptions converts the configured defaults into GRIMMER options.
func (c *Configuration) GrimmerOptions() (grimmer.Options, error) {
	modes, err := c.Checks.Modes()
	if err != nil {
		return grimmer.Options{}, err
	}
	return grimmer.Options{
		Items:     c.Checks.Items,
		Modes:     modes,
		Threshold: c.Checks.Threshold,
		Symmetric: c.Checks.Symmetric,
		Tolerance: c.Checks.Tolerance,
	}, nil
}

// DebitOptions converts the configured defaults into DEBIT options. DEBIT
// takes exactly one rounding mode.
func (c *Configuration) DebitOptions() (debit.Options, error) {
	modes, err := c.Checks.Modes()
	if err != nil {
		return debit.Options{}, err
	}
	if len(modes) != 1 {
		return debit.Options{}, fmt.Errorf("debit takes one rounding mode, got %d: %w", len(modes), rounding.ErrInvalidMode)
	}
	formula, err := debit.ParseFormula(c.Checks.Formula)
	if err != nil {
		return debit.Options{}, err
	}
	return debit.Options{
		Formula:   formula,
		Mode:      modes[0],
		Threshold: c.Checks.Threshold,
		Symmetric: c.Checks.Symmetric,
	}, nil
}

// Validate rejects settings that no command could run with.
func (c *Configuration) Validate() error {
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}
	if err := validation.ValidateLogFormat(c.Logging.Format); err != nil {
		return err
	}
	if err := validation.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}

	modes, err := c.Checks.Modes()
	if err != nil {
		return err
	}
	if err := rounding.CheckModes(modes, c.Checks.Threshold); err != nil {
		return err
	}
	if _, err := debit.ParseFormula(c.Checks.Formula); err != nil {
		return err
	}
	if c.Simrank.MaxIter < 0 || c.Simrank.Length < 1 {
		return fmt.Errorf("simrank needs maxIter >= 0 and length >= 1, got %d and %d", c.Simrank.MaxIter, c.Simrank.Length)
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	validator := &validation.ChecksValidator{
		Checks: validation.ChecksConfig{
			Rounding:  c.Checks.Rounding,
			Threshold: c.Checks.Threshold,
			Tolerance: c.Checks.Tolerance,
			Items:     c.Checks.Items,
		},
	}
	return validator.ValidateAll()
}
