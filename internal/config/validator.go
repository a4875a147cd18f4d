package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks every section and returns all problems at once.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(cfg.Log)
	v.validateDatabase(cfg.Database)
	v.validatePaths(cfg)
	v.validateSearch(cfg.Search)
	v.validateBulk(cfg.Bulk)
	v.validateMonitor(cfg.Monitor)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateLog(cfg LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateDatabase(cfg DatabaseConfig) {
	if cfg.BusyTimeout == "" {
		return
	}
	if d, err := time.ParseDuration(cfg.BusyTimeout); err != nil || d < 0 {
		v.addError("database.busy_timeout", cfg.BusyTimeout, "must be a non-negative duration")
	}
}

func (v *Validator) validatePaths(cfg *Config) {
	required := []struct {
		field string
		value string
	}{
		{"database.path", cfg.Database.Path},
		{"instance.dir", cfg.Instance.Dir},
		{"exports.dir", cfg.Exports.Dir},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			v.addError(r.field, r.value, "path required")
		}
	}

	name := cfg.Exports.DefaultFilename
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		v.addError("exports.default_filename", name, "must be a plain file name")
	}
}

func (v *Validator) validateSearch(cfg SearchConfig) {
	if cfg.DefaultLimit <= 0 {
		v.addError("search.default_limit", cfg.DefaultLimit, "must be positive")
	}
}

func (v *Validator) validateBulk(cfg BulkConfig) {
	if cfg.Mode != BulkModeDirect && cfg.Mode != BulkModeClone {
		v.addError("bulk.mode", cfg.Mode, "must be one of: direct, clone")
	}
}

func (v *Validator) validateMonitor(cfg MonitorConfig) {
	if d, err := time.ParseDuration(cfg.PollInterval); err != nil || d <= 0 {
		v.addError("monitor.poll_interval", cfg.PollInterval, "must be a positive duration")
	}
	if cfg.MaxProbes <= 0 {
		v.addError("monitor.max_probes", cfg.MaxProbes, "must be positive")
	}
}
