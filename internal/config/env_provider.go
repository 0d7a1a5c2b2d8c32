package config

import (
	"context"
	"os"
)

// EnvPrefix namespaces the service's environment variables. A prefixed
// variable wins over the bare name, so QSAR_LOG_LEVEL overrides LOG_LEVEL.
const EnvPrefix = "QSAR_"

// EnvProvider reads configuration from environment variables
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates a provider that honours EnvPrefix
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{prefix: EnvPrefix}
}

// GetSecret returns the prefixed variable when set, else the bare one
func (e *EnvProvider) GetSecret(ctx context.Context, key string) (string, error) {
	if e.prefix != "" {
		if value, ok := os.LookupEnv(e.prefix + key); ok && value != "" {
			return value, nil
		}
	}
	return os.Getenv(key), nil
}

func (e *EnvProvider) Name() string {
	return "env"
}

// IsAvailable always returns true as env vars are always available
func (e *EnvProvider) IsAvailable(ctx context.Context) bool {
	return true
}
