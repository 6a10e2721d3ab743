package server

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/grimcheck/internal/config"
	"github.com/iwvelando/grimcheck/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config is the server-config.yaml read by `grimcheck serve`. The check
// defaults themselves live in the grimcheck.yaml named by ChecksConfig.
type Config struct {
	Address       string               `yaml:"address"`
	MaxUploadSize string               `yaml:"maxUploadSize"` // audit tables, e.g. 512K or 2M
	WriteTimeout  string               `yaml:"writeTimeout"`  // e.g. 30s
	ChecksConfig  string               `yaml:"checksConfig"`
	Simrank       SimrankLimits        `yaml:"simrank"`
	Logging       config.LoggingConfig `yaml:"logging"`

	uploadSizeBytes int64
	writeTimeout    time.Duration
}

// SimrankLimits caps what one rank sampling request may ask for.
type SimrankLimits struct {
	MaxIter  int `yaml:"maxIter"`
	MaxRanks int `yaml:"maxRanks"` // n1 + n2
}

func defaultConfig() *Config {
	return &Config{
		Address:         constants.DefaultServerAddress,
		MaxUploadSize:   strconv.FormatInt(constants.DefaultMaxUploadSizeBytes, 10),
		WriteTimeout:    constants.DefaultWriteTimeout.String(),
		ChecksConfig:    constants.DefaultConfigFile,
		uploadSizeBytes: constants.DefaultMaxUploadSizeBytes,
		writeTimeout:    constants.DefaultWriteTimeout,
		Simrank: SimrankLimits{
			MaxIter:  constants.DefaultMaxSimrankIter,
			MaxRanks: constants.DefaultMaxSimrankRanks,
		},
	}
}

// LoadConfig reads the server config at path. An empty path or a missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config %s: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("server config %s: %w", path, err)
	}
	return cfg, nil
}

// UploadSizeBytes is the largest audit table the server accepts.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes replaces the audit upload limit. Non-positive sizes are
// ignored.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size <= 0 {
		return
	}
	c.uploadSizeBytes = size
	c.MaxUploadSize = strconv.FormatInt(size, 10)
}

// WriteTimeoutDuration returns the longest time a response may take. Rank
// sampling requests are cancelled once it has passed.
func (c *Config) WriteTimeoutDuration() time.Duration {
	return c.writeTimeout
}

// Checks loads the check defaults the server answers requests with.
func (c *Config) Checks() (*config.Configuration, error) {
	if c.ChecksConfig == "" {
		return config.Defaults(), nil
	}
	checks, err := config.LoadConfiguration(c.ChecksConfig)
	if err != nil {
		return nil, err
	}
	if err := checks.Validate(); err != nil {
		return nil, fmt.Errorf("invalid checks config %s: %w", c.ChecksConfig, err)
	}
	return checks, nil
}

// normalize parses the text fields and puts defaults back where the file
// left a field empty or non-positive.
func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	if c.Simrank.MaxIter <= 0 {
		c.Simrank.MaxIter = constants.DefaultMaxSimrankIter
	}
	if c.Simrank.MaxRanks <= 0 {
		c.Simrank.MaxRanks = constants.DefaultMaxSimrankRanks
	}

	if timeout := strings.TrimSpace(c.WriteTimeout); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid write timeout %q: %w", c.WriteTimeout, err)
		}
		if d > 0 {
			c.writeTimeout = d
		}
	}

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return err
	}
	c.uploadSizeBytes = constants.DefaultMaxUploadSizeBytes
	c.SetUploadSizeBytes(size)
	return nil
}

var sizeUnits = map[string]int64{
	"":   1,
	"B":  1,
	"K":  1 << 10,
	"KB": 1 << 10,
	"M":  1 << 20,
	"MB": 1 << 20,
	"G":  1 << 30,
	"GB": 1 << 30,
}

// ParseSize reads an upload limit such as "4096", "512K" or "2MB". Units are
// binary and case-insensitive. An empty string is the default limit.
func ParseSize(value string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(value))
	if s == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	digits := strings.TrimRight(s, "BKMG ")
	unit := strings.TrimSpace(s[len(digits):])
	multiplier, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unsupported size unit %q in %q", unit, value)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(digits), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: must not be negative", value)
	}
	if n > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("size %q overflows", value)
	}
	return n * multiplier, nil
}
