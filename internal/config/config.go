package config

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// HTTP server configuration
	Server ServerConfig

	// Reference catalog configuration
	Catalog CatalogConfig

	// Prediction lookup configuration
	Predictor PredictorConfig

	// Report generation and download configuration
	Report ReportConfig

	// Redis configuration
	Redis RedisConfig

	// Database configuration
	Database DatabaseConfig

	// Query history configuration
	History HistoryConfig

	// Per-client rate limiting
	RateLimit RateLimitConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	GinMode         string
	CORSOrigin      string
	TrustedProxies  []string
	ShutdownTimeout time.Duration
}

// CatalogConfig points at an optional catalog override file
type CatalogConfig struct {
	Path string
}

// PredictorConfig holds prediction lookup configuration
type PredictorConfig struct {
	DelayMin    time.Duration
	DelayJitter time.Duration
	Seed        int64 // 0 seeds from the clock
	Simulate    bool  // fall back to simulated predictions for unknown substances
	Breaker     BreakerConfig
}

// BreakerConfig tunes the circuit breaker around the predictor
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// ReportConfig holds report configuration
type ReportConfig struct {
	Store         string // memory or redis
	TTL           time.Duration
	SigningSecret string
	TokenTTL      time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	Database       string
	Username       string
	Password       string
	SSLMode        string
	MigrationsPath string
}

// HistoryConfig selects where chat interactions are recorded
type HistoryConfig struct {
	Backend  string // memory or postgres
	Capacity int
}

// RateLimitConfig holds sliding-window rate limit settings
type RateLimitConfig struct {
	Requests int // 0 disables the limiter
	Window   time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Loader handles loading configuration from various sources
type Loader struct {
	provider SecretProvider
}

// NewLoader creates a new configuration loader with the given secret provider
func NewLoader(provider SecretProvider) *Loader {
	return &Loader{
		provider: provider,
	}
}

// NewDefaultLoader creates a loader with the default provider chain:
// 1. Environment variables
// 2. YAML config file (if configFile is set)
// 3. File-based secrets mounted under /var/secrets
func NewDefaultLoader(configFile string) (*Loader, error) {
	providers := []SecretProvider{NewEnvProvider()}

	if configFile != "" {
		vp, err := NewViperProvider(configFile)
		if err != nil {
			return nil, err
		}
		providers = append(providers, vp)
	}

	providers = append(providers, NewFileProvider(DefaultSecretsPath))

	return &Loader{
		provider: NewChainProvider(providers...),
	}, nil
}

// SensitiveKeys are logged by source at startup, never by value.
var SensitiveKeys = []string{"REPORT_SIGNING_SECRET", "REDIS_PASSWORD", "DB_PASSWORD"}

// Sources reports which provider supplied each key, or "default" when none
// did. Loaders built on a single provider report that provider's name.
func (l *Loader) Sources(ctx context.Context, keys ...string) map[string]string {
	sources := make(map[string]string, len(keys))
	for _, key := range keys {
		source := "default"
		if chain, ok := l.provider.(*ChainProvider); ok {
			if _, name, err := chain.Lookup(ctx, key); err == nil {
				source = name
			}
		} else if value, err := l.provider.GetSecret(ctx, key); err == nil && value != "" {
			source = l.provider.Name()
		}
		sources[key] = source
	}
	return sources
}

// Load loads the complete configuration
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	cfg := &Config{}

	cfg.Server = ServerConfig{
		Port:            l.getString(ctx, "SERVER_PORT", "8080"),
		GinMode:         l.getString(ctx, "SERVER_GIN_MODE", "debug"),
		CORSOrigin:      l.getString(ctx, "SERVER_CORS_ORIGIN", "*"),
		TrustedProxies:  l.getSlice(ctx, "SERVER_TRUSTED_PROXIES", nil),
		ShutdownTimeout: l.getDuration(ctx, "SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	cfg.Catalog = CatalogConfig{
		Path: l.getString(ctx, "CATALOG_PATH", ""),
	}

	cfg.Predictor = PredictorConfig{
		DelayMin:    l.getDuration(ctx, "PREDICTOR_DELAY_MIN", 400*time.Millisecond),
		DelayJitter: l.getDuration(ctx, "PREDICTOR_DELAY_JITTER", 500*time.Millisecond),
		Seed:        l.getInt64(ctx, "PREDICTOR_SEED", 0),
		Simulate:    l.getBool(ctx, "PREDICTOR_SIMULATE", true),
		Breaker: BreakerConfig{
			MaxRequests:      uint32(l.getInt(ctx, "PREDICTOR_BREAKER_MAX_REQUESTS", 3)),
			Interval:         l.getDuration(ctx, "PREDICTOR_BREAKER_INTERVAL", 10*time.Second),
			Timeout:          l.getDuration(ctx, "PREDICTOR_BREAKER_TIMEOUT", 30*time.Second),
			FailureThreshold: uint32(l.getInt(ctx, "PREDICTOR_BREAKER_FAILURE_THRESHOLD", 5)),
		},
	}

	cfg.Report = ReportConfig{
		Store:         l.getString(ctx, "REPORT_STORE", "memory"),
		TTL:           l.getDuration(ctx, "REPORT_TTL", time.Hour),
		SigningSecret: l.getString(ctx, "REPORT_SIGNING_SECRET", ""),
		TokenTTL:      l.getDuration(ctx, "REPORT_TOKEN_TTL", 15*time.Minute),
	}

	cfg.Redis = RedisConfig{
		Addr:     l.getString(ctx, "REDIS_ADDR", "localhost:6379"),
		Password: l.getString(ctx, "REDIS_PASSWORD", ""),
		DB:       l.getInt(ctx, "REDIS_DB", 0),
	}

	cfg.Database = DatabaseConfig{
		Host:           l.getString(ctx, "DB_HOST", "localhost"),
		Port:           l.getString(ctx, "DB_PORT", "5432"),
		Database:       l.getString(ctx, "DB_NAME", "qsar_chat"),
		Username:       l.getString(ctx, "DB_USER", "qsar"),
		Password:       l.getString(ctx, "DB_PASSWORD", ""),
		SSLMode:        l.getString(ctx, "DB_SSLMODE", "disable"),
		MigrationsPath: l.getString(ctx, "DB_MIGRATIONS_PATH", "./migrations"),
	}

	cfg.History = HistoryConfig{
		Backend:  l.getString(ctx, "HISTORY_BACKEND", "memory"),
		Capacity: l.getInt(ctx, "HISTORY_CAPACITY", 100),
	}

	cfg.RateLimit = RateLimitConfig{
		Requests: l.getInt(ctx, "RATELIMIT_REQUESTS", 60),
		Window:   l.getDuration(ctx, "RATELIMIT_WINDOW", time.Minute),
	}

	cfg.Log = LogConfig{
		Level:  l.getString(ctx, "LOG_LEVEL", "info"),
		Format: l.getString(ctx, "LOG_FORMAT", "json"),
	}

	return cfg, nil
}

// Helper methods for retrieving and parsing configuration values

func (l *Loader) getString(ctx context.Context, key, defaultValue string) string {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}
	return value
}

func (l *Loader) getBool(ctx context.Context, key string, defaultValue bool) bool {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func (l *Loader) getInt(ctx context.Context, key string, defaultValue int) int {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func (l *Loader) getInt64(ctx context.Context, key string, defaultValue int64) int64 {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return i
}

func (l *Loader) getDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func (l *Loader) getSlice(ctx context.Context, key string, defaultValue []string) []string {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}
	return result
}
