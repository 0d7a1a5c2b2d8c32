package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSecretsPath is where orchestrators mount secret files.
const DefaultSecretsPath = "/var/secrets"

// FileProvider reads one value per file from a mounted secrets directory.
// REPORT_SIGNING_SECRET is looked up as report-signing-secret (Kubernetes
// style) and then as REPORT_SIGNING_SECRET (Docker secrets style).
type FileProvider struct {
	secretsPath string
}

func NewFileProvider(secretsPath string) *FileProvider {
	return &FileProvider{
		secretsPath: secretsPath,
	}
}

func secretFileNames(key string) []string {
	return []string{
		strings.ToLower(strings.ReplaceAll(key, "_", "-")),
		key,
	}
}

// GetSecret returns the trimmed file contents, or "" when no file exists.
func (f *FileProvider) GetSecret(ctx context.Context, key string) (string, error) {
	if f.secretsPath == "" {
		return "", fmt.Errorf("secrets path not configured")
	}

	for _, name := range secretFileNames(key) {
		path := filepath.Join(f.secretsPath, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", nil
}

func (f *FileProvider) Name() string {
	return "file"
}

// IsAvailable reports whether the secrets directory exists
func (f *FileProvider) IsAvailable(ctx context.Context) bool {
	if f.secretsPath == "" {
		return false
	}

	info, err := os.Stat(f.secretsPath)
	return err == nil && info.IsDir()
}
