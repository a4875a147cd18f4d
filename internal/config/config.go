// Package config loads promptbank settings from flags, environment, YAML
// files and defaults.
package config

import "time"

// Bulk worker merge strategies.
const (
	BulkModeDirect = "direct"
	BulkModeClone  = "clone"
)

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Instance InstanceConfig `mapstructure:"instance" yaml:"instance"`
	Exports  ExportsConfig  `mapstructure:"exports" yaml:"exports"`
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	Bulk     BulkConfig     `mapstructure:"bulk" yaml:"bulk"`
	Monitor  MonitorConfig  `mapstructure:"monitor" yaml:"monitor"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path        string `mapstructure:"path" yaml:"path"`
	BusyTimeout string `mapstructure:"busy_timeout" yaml:"busy_timeout"`
}

// InstanceConfig is the per-installation working directory holding job
// files, worker logs and scratch clones.
type InstanceConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ExportsConfig configures where export files are written.
type ExportsConfig struct {
	Dir             string `mapstructure:"dir" yaml:"dir"`
	DefaultFilename string `mapstructure:"default_filename" yaml:"default_filename"`
}

// SearchConfig configures prompt search.
type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit" yaml:"default_limit"`
}

// BulkConfig configures background import and export workers.
type BulkConfig struct {
	// Mode is direct (write the live file under the SQLite lock) or clone
	// (work on a scratch copy and copy it back afterwards).
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// MonitorConfig configures task liveness checks.
type MonitorConfig struct {
	PollInterval string `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxProbes    int    `mapstructure:"max_probes" yaml:"max_probes"`
}

// BusyTimeoutDuration returns the parsed busy timeout, or 5s when unset or
// malformed.
func (c DatabaseConfig) BusyTimeoutDuration() time.Duration {
	return parseDurationOr(c.BusyTimeout, 5*time.Second)
}

// Interval returns the parsed poll interval, or 2s when unset or malformed.
func (c MonitorConfig) Interval() time.Duration {
	return parseDurationOr(c.PollInterval, 2*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
