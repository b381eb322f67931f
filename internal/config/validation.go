package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
// Connection entries are only checked when accounts come from the config file.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if c.AccountsFile == "" {
		errors = append(errors, c.validateConnection("base", &c.Base)...)
		for i := range c.Targets {
			errors = append(errors, c.validateConnection(fmt.Sprintf("targets[%d]", i), &c.Targets[i])...)
		}
	}

	errors = append(errors, c.validateProcessing()...)
	errors = append(errors, c.validateSync()...)
	errors = append(errors, c.validateRowCounts()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// ValidateConnection checks a single connection entry, e.g. one loaded from an accounts sheet.
func (c *Config) ValidateConnection(prefix string, conn *ConnectionConfig) error {
	if errs := c.validateConnection(prefix, conn); len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateConnection(prefix string, conn *ConnectionConfig) ValidationErrors {
	var errors ValidationErrors

	if conn.Server == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".server",
			Message: "server is required",
		})
	}

	if conn.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	if conn.Port < 0 || conn.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	validDrivers := map[string]bool{"sqlserver": true, "mssql": true, "mysql": true, "": true}
	if !validDrivers[strings.ToLower(conn.Driver)] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".driver",
			Message: "driver must be 'sqlserver' or 'mysql'",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[conn.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if conn.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if conn.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.Concurrency <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.concurrency",
			Message: "concurrency must be positive",
		})
	}

	if c.Processing.ConnectTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.connect_timeout_seconds",
			Message: "connect_timeout_seconds must be positive",
		})
	}

	if c.Processing.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.max_retries",
			Message: "max_retries cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateSync() ValidationErrors {
	var errors ValidationErrors

	if c.Sync.LockTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "sync.lock_timeout_seconds",
			Message: "lock_timeout_seconds cannot be negative",
		})
	}

	switch c.Sync.VerifyMethod {
	case "", "normalized", "sha256", "skip":
	default:
		errors = append(errors, ValidationError{
			Field:   "sync.verify_method",
			Message: fmt.Sprintf("invalid verify_method %q (must be 'normalized', 'sha256' or 'skip')", c.Sync.VerifyMethod),
		})
	}

	if c.Sync.CacheMaxCost < 0 {
		errors = append(errors, ValidationError{
			Field:   "sync.cache_max_cost",
			Message: "cache_max_cost cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateRowCounts() ValidationErrors {
	var errors ValidationErrors

	if !c.RowCounts.Enabled {
		return errors
	}
	if _, err := regexp.Compile(c.RowCounts.TestServerPattern); err != nil {
		errors = append(errors, ValidationError{
			Field:   "row_counts.test_server_pattern",
			Message: fmt.Sprintf("invalid regular expression: %v", err),
		})
	}

	return errors
}

func (c *Config) validateOutput() ValidationErrors {
	var errors ValidationErrors

	validFormats := map[string]bool{"json": true, "csv": true, "": true}
	if !validFormats[strings.ToLower(c.Output.Format)] {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Message: "format must be 'json' or 'csv'",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
