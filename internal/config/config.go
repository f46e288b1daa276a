package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full option surface of the pipeline. Every field has a
// working default so an empty file (or no file at all) yields a usable
// configuration.
type Config struct {
	DataPath              string         `yaml:"data_path"`
	BaseURL               string         `yaml:"base_url"`
	UpdateIntervalSeconds int            `yaml:"update_interval_seconds"`
	MaxRetries            int            `yaml:"max_retries"`
	RetryDelaySeconds     int            `yaml:"retry_delay_seconds"`
	RequestTimeoutSeconds int            `yaml:"request_timeout_seconds"`
	MaxFilesPerCycle      int            `yaml:"max_files_per_cycle"`
	APIPort               int            `yaml:"api_port"`
	KnownDUIDsPath        string         `yaml:"known_duids_path"`
	AlertDBPath           string         `yaml:"alert_db_path"`
	AlertThrottleMinutes  int            `yaml:"alert_throttle_minutes"`
	EnableEmailAlerts     bool           `yaml:"enable_email_alerts"`
	RetentionDays         map[string]int `yaml:"retention_days"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.fillDefaults()
	return cfg
}

// Load reads a YAML config file and applies defaults to unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	return &cfg, nil
}

func (c *Config) fillDefaults() {
	if c.DataPath == "" {
		c.DataPath = "./data"
	}
	if c.UpdateIntervalSeconds <= 0 {
		c.UpdateIntervalSeconds = 270
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelaySeconds <= 0 {
		c.RetryDelaySeconds = 10
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 60
	}
	if c.MaxFilesPerCycle <= 0 {
		c.MaxFilesPerCycle = 12
	}
	if c.APIPort <= 0 {
		c.APIPort = 8080
	}
	if c.KnownDUIDsPath == "" {
		c.KnownDUIDsPath = c.DataPath + "/known_duids.txt"
	}
	if c.AlertDBPath == "" {
		c.AlertDBPath = c.DataPath + "/alerts.sqlite"
	}
	if c.AlertThrottleMinutes <= 0 {
		c.AlertThrottleMinutes = 60
	}
}

// UpdateInterval is the scheduler cadence as a duration.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalSeconds) * time.Second
}

// RetentionCutoff returns the prune cutoff for a dataset, or the zero
// time when no retention is configured for it.
func (c *Config) RetentionCutoff(dataset string, now time.Time) time.Time {
	days, ok := c.RetentionDays[dataset]
	if !ok || days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}
