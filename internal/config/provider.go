package config

import (
	"context"
	"fmt"
)

// SecretProvider is a source of configuration values keyed by their
// environment variable name.
type SecretProvider interface {
	GetSecret(ctx context.Context, key string) (string, error)

	// Name identifies the provider in logs
	Name() string

	IsAvailable(ctx context.Context) bool
}

// ChainProvider consults providers in order; the first non-empty value wins.
type ChainProvider struct {
	providers []SecretProvider
}

func NewChainProvider(providers ...SecretProvider) *ChainProvider {
	return &ChainProvider{
		providers: providers,
	}
}

// GetSecret returns the first non-empty value in the chain
func (c *ChainProvider) GetSecret(ctx context.Context, key string) (string, error) {
	value, _, err := c.Lookup(ctx, key)
	return value, err
}

// Lookup is GetSecret that also names the provider that supplied the value.
func (c *ChainProvider) Lookup(ctx context.Context, key string) (string, string, error) {
	var lastErr error

	for _, provider := range c.providers {
		if !provider.IsAvailable(ctx) {
			continue
		}

		value, err := provider.GetSecret(ctx, key)
		if err == nil && value != "" {
			return value, provider.Name(), nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", "", fmt.Errorf("all providers failed, last error: %w", lastErr)
	}
	return "", "", fmt.Errorf("no available provider found for key: %s", key)
}

func (c *ChainProvider) Name() string {
	return "chain"
}

// IsAvailable checks if any provider in the chain is available
func (c *ChainProvider) IsAvailable(ctx context.Context) bool {
	for _, provider := range c.providers {
		if provider.IsAvailable(ctx) {
			return true
		}
	}
	return false
}
