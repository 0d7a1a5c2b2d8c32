package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation error(s):\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are any validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Validate performs comprehensive validation on the configuration
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validatePredictor()...)
	errors = append(errors, c.validateReport()...)
	errors = append(errors, c.validateHistory()...)
	errors = append(errors, c.validateRateLimit()...)
	errors = append(errors, c.validateLog()...)

	if errors.HasErrors() {
		return errors
	}

	return nil
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Port == "" {
		errors = append(errors, ValidationError{
			Field:   "Server.Port",
			Message: "server port is required",
		})
	}

	if !oneOf(c.Server.GinMode, "debug", "release", "test") {
		errors = append(errors, ValidationError{
			Field:   "Server.GinMode",
			Message: fmt.Sprintf("invalid gin mode: %s (must be 'debug', 'release', or 'test')", c.Server.GinMode),
		})
	}

	if c.Server.ShutdownTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "Server.ShutdownTimeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errors
}

func (c *Config) validatePredictor() []ValidationError {
	var errors []ValidationError

	if c.Predictor.DelayMin < 0 || c.Predictor.DelayJitter < 0 {
		errors = append(errors, ValidationError{
			Field:   "Predictor.Delay",
			Message: "artificial delay must be non-negative",
		})
	}

	if c.Predictor.Breaker.FailureThreshold == 0 {
		errors = append(errors, ValidationError{
			Field:   "Predictor.Breaker.FailureThreshold",
			Message: "breaker failure threshold must be positive",
		})
	}

	if c.Predictor.Breaker.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "Predictor.Breaker.Timeout",
			Message: "breaker timeout must be positive",
		})
	}

	return errors
}

func (c *Config) validateReport() []ValidationError {
	var errors []ValidationError

	switch c.Report.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errors = append(errors, ValidationError{
				Field:   "Redis.Addr",
				Message: "redis address is required when reports are stored in redis",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "Report.Store",
			Message: fmt.Sprintf("invalid report store: %s (must be 'memory' or 'redis')", c.Report.Store),
		})
	}

	if c.Report.TTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "Report.TTL",
			Message: "report TTL must be positive",
		})
	}

	if c.Report.SigningSecret != "" && c.Report.TokenTTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "Report.TokenTTL",
			Message: "download token TTL must be positive when signing is enabled",
		})
	}

	return errors
}

func (c *Config) validateHistory() []ValidationError {
	var errors []ValidationError

	switch c.History.Backend {
	case "memory":
		if c.History.Capacity <= 0 {
			errors = append(errors, ValidationError{
				Field:   "History.Capacity",
				Message: "history capacity must be positive",
			})
		}
	case "postgres":
		errors = append(errors, c.validateDatabase()...)
	default:
		errors = append(errors, ValidationError{
			Field:   "History.Backend",
			Message: fmt.Sprintf("invalid history backend: %s (must be 'memory' or 'postgres')", c.History.Backend),
		})
	}

	return errors
}

func (c *Config) validateDatabase() []ValidationError {
	var errors []ValidationError

	if c.Database.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "Database.Host",
			Message: "database host is required",
		})
	}

	if c.Database.Port == "" {
		errors = append(errors, ValidationError{
			Field:   "Database.Port",
			Message: "database port is required",
		})
	}

	if c.Database.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "Database.Database",
			Message: "database name is required",
		})
	}

	if c.Database.Username == "" {
		errors = append(errors, ValidationError{
			Field:   "Database.Username",
			Message: "database username is required",
		})
	}

	return errors
}

func (c *Config) validateRateLimit() []ValidationError {
	var errors []ValidationError

	if c.RateLimit.Requests < 0 {
		errors = append(errors, ValidationError{
			Field:   "RateLimit.Requests",
			Message: "rate limit must be non-negative",
		})
	}

	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		errors = append(errors, ValidationError{
			Field:   "RateLimit.Window",
			Message: "rate limit window must be positive",
		})
	}

	return errors
}

func (c *Config) validateLog() []ValidationError {
	var errors []ValidationError

	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		errors = append(errors, ValidationError{
			Field:   "Log.Level",
			Message: fmt.Sprintf("invalid log level: %s", c.Log.Level),
		})
	}

	if !oneOf(c.Log.Format, "json", "console") {
		errors = append(errors, ValidationError{
			Field:   "Log.Format",
			Message: fmt.Sprintf("invalid log format: %s (must be 'json' or 'console')", c.Log.Format),
		})
	}

	return errors
}

// ValidateProduction performs additional validation for production environments
// It checks for insecure default values that should not be used in production
func (c *Config) ValidateProduction() error {
	var errors ValidationErrors

	insecureSecrets := []string{
		"",
		"change-this-in-production",
		"secret",
		"report-secret",
	}
	for _, insecure := range insecureSecrets {
		if c.Report.SigningSecret == insecure {
			errors = append(errors, ValidationError{
				Field:   "Report.SigningSecret",
				Message: "production deployment must not use default or insecure report signing secret",
			})
			break
		}
	}

	if len(c.Report.SigningSecret) < 32 {
		errors = append(errors, ValidationError{
			Field:   "Report.SigningSecret",
			Message: "report signing secret should be at least 32 characters for production use",
		})
	}

	if c.Report.Store == "redis" && (c.Redis.Password == "" || c.Redis.Password == "changeme") {
		errors = append(errors, ValidationError{
			Field:   "Redis.Password",
			Message: "production deployment must not use default or empty Redis password",
		})
	}

	if c.History.Backend == "postgres" && (c.Database.Password == "" || c.Database.Password == "changeme") {
		errors = append(errors, ValidationError{
			Field:   "Database.Password",
			Message: "production deployment must not use default or empty database password",
		})
	}

	if c.Server.CORSOrigin == "*" {
		errors = append(errors, ValidationError{
			Field:   "Server.CORSOrigin",
			Message: "production deployment should restrict the allowed CORS origin",
		})
	}

	if c.Server.GinMode != "release" {
		errors = append(errors, ValidationError{
			Field:   "Server.GinMode",
			Message: "production deployment should use 'release' mode",
		})
	}

	if c.RateLimit.Requests == 0 {
		errors = append(errors, ValidationError{
			Field:   "RateLimit.Requests",
			Message: "production deployment should enable rate limiting",
		})
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// IsProduction determines if the current environment is production
// based on the GinMode setting
func (c *Config) IsProduction() bool {
	return c.Server.GinMode == "release"
}

// ValidateWithContext validates configuration and runs production checks if appropriate
func (c *Config) ValidateWithContext() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.IsProduction() {
		if err := c.ValidateProduction(); err != nil {
			return fmt.Errorf("production validation failed: %w", err)
		}
	}

	return nil
}
