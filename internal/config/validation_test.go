package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			GinMode:         "debug",
			CORSOrigin:      "*",
			ShutdownTimeout: 10 * time.Second,
		},
		Predictor: PredictorConfig{
			DelayMin:    400 * time.Millisecond,
			DelayJitter: 500 * time.Millisecond,
			Breaker: BreakerConfig{
				MaxRequests:      3,
				Interval:         10 * time.Second,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		Report: ReportConfig{
			Store:    "memory",
			TTL:      time.Hour,
			TokenTTL: 15 * time.Minute,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			Database: "qsar_chat",
			Username: "qsar",
		},
		History:   HistoryConfig{Backend: "memory", Capacity: 100},
		RateLimit: RateLimitConfig{Requests: 60, Window: time.Minute},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

func productionConfig() *Config {
	cfg := validConfig()
	cfg.Server.GinMode = "release"
	cfg.Server.CORSOrigin = "https://qsar.example.org"
	cfg.Report.SigningSecret = "a-very-long-report-signing-secret-value"
	return cfg
}

func TestConfigValidation(t *testing.T) {
	t.Run("valid config passes validation", func(t *testing.T) {
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no validation errors, got: %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }, "Server.Port"},
		{"invalid gin mode", func(c *Config) { c.Server.GinMode = "prod" }, "Server.GinMode"},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "Server.ShutdownTimeout"},
		{"negative delay", func(c *Config) { c.Predictor.DelayJitter = -time.Second }, "Predictor.Delay"},
		{"zero breaker threshold", func(c *Config) { c.Predictor.Breaker.FailureThreshold = 0 }, "Predictor.Breaker.FailureThreshold"},
		{"unknown report store", func(c *Config) { c.Report.Store = "s3" }, "Report.Store"},
		{"redis store without address", func(c *Config) { c.Report.Store = "redis"; c.Redis.Addr = "" }, "Redis.Addr"},
		{"zero report TTL", func(c *Config) { c.Report.TTL = 0 }, "Report.TTL"},
		{"signing without token TTL", func(c *Config) { c.Report.SigningSecret = "x"; c.Report.TokenTTL = 0 }, "Report.TokenTTL"},
		{"unknown history backend", func(c *Config) { c.History.Backend = "mysql" }, "History.Backend"},
		{"zero history capacity", func(c *Config) { c.History.Capacity = 0 }, "History.Capacity"},
		{"postgres without host", func(c *Config) { c.History.Backend = "postgres"; c.Database.Host = "" }, "Database.Host"},
		{"negative rate limit", func(c *Config) { c.RateLimit.Requests = -1 }, "RateLimit.Requests"},
		{"rate limit without window", func(c *Config) { c.RateLimit.Window = 0 }, "RateLimit.Window"},
		{"invalid log level", func(c *Config) { c.Log.Level = "trace" }, "Log.Level"},
		{"invalid log format", func(c *Config) { c.Log.Format = "xml" }, "Log.Format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error for %s, got: %v", tt.field, err)
			}
		})
	}

	t.Run("disabled rate limit needs no window", func(t *testing.T) {
		cfg := validConfig()
		cfg.RateLimit = RateLimitConfig{}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("memory history ignores database settings", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database = DatabaseConfig{}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestValidationErrors(t *testing.T) {
	var empty ValidationErrors
	if empty.HasErrors() {
		t.Error("empty errors should not report errors")
	}
	if empty.Error() != "no validation errors" {
		t.Errorf("unexpected message: %s", empty.Error())
	}

	errs := ValidationErrors{
		{Field: "A", Message: "first"},
		{Field: "B", Message: "second"},
	}
	msg := errs.Error()
	if !strings.HasPrefix(msg, "2 validation error(s)") {
		t.Errorf("unexpected message: %s", msg)
	}
	if !strings.Contains(msg, "1. validation error: A - first") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestProductionValidation(t *testing.T) {
	t.Run("secure production config passes", func(t *testing.T) {
		if err := productionConfig().ValidateProduction(); err != nil {
			t.Errorf("expected no errors, got: %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty signing secret", func(c *Config) { c.Report.SigningSecret = "" }, "Report.SigningSecret"},
		{"short signing secret", func(c *Config) { c.Report.SigningSecret = "short" }, "Report.SigningSecret"},
		{"wildcard CORS", func(c *Config) { c.Server.CORSOrigin = "*" }, "Server.CORSOrigin"},
		{"debug mode", func(c *Config) { c.Server.GinMode = "debug" }, "Server.GinMode"},
		{"rate limit disabled", func(c *Config) { c.RateLimit.Requests = 0 }, "RateLimit.Requests"},
		{"redis without password", func(c *Config) { c.Report.Store = "redis" }, "Redis.Password"},
		{"postgres with default password", func(c *Config) {
			c.History.Backend = "postgres"
			c.Database.Password = "changeme"
		}, "Database.Password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := productionConfig()
			tt.mutate(cfg)

			err := cfg.ValidateProduction()
			if err == nil {
				t.Fatal("expected production validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error for %s, got: %v", tt.field, err)
			}
		})
	}
}

func TestValidateWithContext(t *testing.T) {
	t.Run("debug mode skips production checks", func(t *testing.T) {
		if err := validConfig().ValidateWithContext(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("release mode runs production checks", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.GinMode = "release"

		err := cfg.ValidateWithContext()
		if err == nil {
			t.Fatal("expected production validation error")
		}
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("expected ValidationErrors, got %T", err)
		}
		if !cfg.IsProduction() {
			t.Error("release mode should be production")
		}
	})
}
