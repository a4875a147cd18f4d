package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Default values shared by the loader and `config init`.
var defaults = map[string]any{
	"log.level":                "info",
	"log.format":               "auto",
	"database.path":            ".promptbank/promptbank.db",
	"database.busy_timeout":    "5s",
	"instance.dir":             ".promptbank",
	"exports.dir":              ".promptbank/exports",
	"exports.default_filename": "export.json",
	"search.default_limit":     100,
	"bulk.mode":                BulkModeDirect,
	"monitor.poll_interval":    "2s",
	"monitor.max_probes":       8,
}

// Default returns the configuration used when no file, flag or environment
// variable overrides anything.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "auto"},
		Database: DatabaseConfig{Path: ".promptbank/promptbank.db", BusyTimeout: "5s"},
		Instance: InstanceConfig{Dir: ".promptbank"},
		Exports:  ExportsConfig{Dir: ".promptbank/exports", DefaultFilename: "export.json"},
		Search:   SearchConfig{DefaultLimit: 100},
		Bulk:     BulkConfig{Mode: BulkModeDirect},
		Monitor:  MonitorConfig{PollInterval: "2s", MaxProbes: 8},
	}
}

// DefaultYAML renders the default configuration as a commented YAML file.
func DefaultYAML() ([]byte, error) {
	body, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	header := "# promptbank configuration\n" +
		"# bulk.mode: direct writes the live database, clone works on a scratch copy\n" +
		"# and copies it back (writes made meanwhile are lost).\n\n"
	return append([]byte(header), body...), nil
}
