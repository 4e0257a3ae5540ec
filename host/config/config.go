// Package config holds the rtc-host settings file
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"pdflogger/host/logger"
)

// Config holds the host tool settings
type Config struct {
	// Device is the serial device of the logger
	Device string `yaml:"device"`
	// Baud is the UART rate
	Baud int `yaml:"baud"`
	// ReadTimeout bounds a single serial read
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// ResponseTimeout bounds a command round trip
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`
	// Drift configures the drift measurement
	Drift DriftConfig `yaml:"drift"`
}

// DriftConfig configures MeasureDrift
type DriftConfig struct {
	Samples  int           `yaml:"samples"`
	Interval time.Duration `yaml:"interval"`
}

const (
	DefaultConfigFilename  = "rtc-host.yaml"
	DefaultDevice          = "/dev/ttyUSB0"
	DefaultBaud            = 250000
	DefaultReadTimeout     = 50 * time.Millisecond
	DefaultResponseTimeout = 2 * time.Second
	DefaultDriftSamples    = 10
	DefaultDriftInterval   = time.Second

	DefaultFilePermissions = 0o600
)

var (
	errConfigIsNotSet   = errors.New("configuration is not set")
	errBadBaud          = errors.New("baud must be positive")
	errBadDriftSamples  = errors.New("drift.samples must be at least 2")
	errBadDriftInterval = errors.New("drift.interval must be positive")
)

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	_ = Validate(cfg)
	return cfg
}

// Load reads and validates the settings file. A missing default file
// yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}
	if path == "" {
		path = DefaultConfigFilename
	}
	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Validate fills in defaults and rejects values that cannot work
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Device == "" {
		cfg.Device = DefaultDevice
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.Baud < 0 {
		return errBadBaud
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = DefaultResponseTimeout
	}
	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.Drift.Samples == 0 {
		cfg.Drift.Samples = DefaultDriftSamples
	}
	if cfg.Drift.Samples < 2 {
		return errBadDriftSamples
	}
	if cfg.Drift.Interval == 0 {
		cfg.Drift.Interval = DefaultDriftInterval
	}
	if cfg.Drift.Interval < 0 {
		return errBadDriftInterval
	}
	return nil
}
