package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ViperProvider reads values from a YAML, JSON or TOML config file.
// Keys map to nested settings by splitting on the first underscore:
// REPORT_SIGNING_SECRET -> report.signing_secret
type ViperProvider struct {
	v    *viper.Viper
	path string
}

// NewViperProvider reads the config file at path.
func NewViperProvider(path string) (*ViperProvider, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &ViperProvider{v: v, path: path}, nil
}

// FileKey converts an environment-style key to its config file path.
func FileKey(key string) string {
	lower := strings.ToLower(key)
	section, rest, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + rest
}

// GetSecret returns the config file value for key, or "" when unset
func (p *ViperProvider) GetSecret(ctx context.Context, key string) (string, error) {
	fileKey := FileKey(key)
	if !p.v.IsSet(fileKey) {
		return "", nil
	}

	if _, isList := p.v.Get(fileKey).([]interface{}); isList {
		return strings.Join(p.v.GetStringSlice(fileKey), ","), nil
	}
	return p.v.GetString(fileKey), nil
}

// Name returns the provider name
func (p *ViperProvider) Name() string {
	return "viper:" + p.path
}

// IsAvailable is true once the file has been read
func (p *ViperProvider) IsAvailable(ctx context.Context) bool {
	return p.v != nil
}
