// Package config loads the rangerd daemon configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the rangerd configuration
type Config struct {
	Sensor SensorConfig `yaml:"sensor"`
	NATS   NATSConfig   `yaml:"nats"`
	Log    LogConfig    `yaml:"log"`
}

// SensorConfig describes the sensor to drive
type SensorConfig struct {
	// Name identifies the sensor in the published subject
	Name string `yaml:"name"`
	// Device is the I2C bus device path, e.g. /dev/i2c-1
	Device string `yaml:"device"`
	// Address is the 7-bit sensor address; 0 uses the device default
	Address uint8 `yaml:"address"`
	// DistanceMode is one of short, medium, long
	DistanceMode string `yaml:"distance_mode"`
	// TimingBudgetUs is the measurement timing budget in microseconds
	TimingBudgetUs uint32 `yaml:"timing_budget_us"`
	// PeriodMs is the inter-measurement period in milliseconds
	PeriodMs uint32 `yaml:"period_ms"`
	// TimeoutMs bounds blocking reads; 0 blocks indefinitely
	TimeoutMs uint32 `yaml:"timeout_ms"`
	// ROI optionally narrows the region of interest
	ROI *ROIConfig `yaml:"roi,omitempty"`
}

// ROIConfig is an optional region-of-interest override
type ROIConfig struct {
	Width  uint8 `yaml:"width"`
	Height uint8 `yaml:"height"`
	Center uint8 `yaml:"center"`
}

// NATSConfig represents the telemetry transport configuration
type NATSConfig struct {
	URL string `yaml:"url"`
	// SubjectPrefix prefixes the published subject, which is
	// <prefix>.<sensor-name>.sample
	SubjectPrefix string `yaml:"subject_prefix"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the configuration file, applies environment
// overrides and fills in defaults.
func Load(filename string) (*Config, error) {

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if cfg.Sensor.Device == "" {
		return nil, fmt.Errorf("sensor.device is required")
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("NATS_URL"); url != "" {
		c.NATS.URL = url
	}

	if dev := os.Getenv("I2C_DEVICE"); dev != "" {
		c.Sensor.Device = dev
	}
}

func (c *Config) applyDefaults() {
	if c.Sensor.Name == "" {
		c.Sensor.Name = "vl53l1x"
	}

	if c.Sensor.DistanceMode == "" {
		c.Sensor.DistanceMode = "long"
	}

	if c.Sensor.TimingBudgetUs == 0 {
		c.Sensor.TimingBudgetUs = 50000
	}

	if c.Sensor.PeriodMs == 0 {
		// ST recommends the period be at least 5ms above the budget
		c.Sensor.PeriodMs = c.Sensor.TimingBudgetUs/1000 + 5
	}

	if c.Sensor.TimeoutMs == 0 {
		c.Sensor.TimeoutMs = 500
	}

	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}

	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "ranging"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
