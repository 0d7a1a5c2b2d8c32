package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		errMsg   string
		expected bool
	}{
		{"connection refused", "failed to ping database: dial tcp 127.0.0.1:5432: connect: connection refused", true},
		{"server starting", "pq: the database system is starting up", true},
		{"dns not ready", "dial tcp: lookup postgres: no such host", true},
		{"ping timeout", "failed to ping database: context deadline exceeded", true},
		{"bad password", `pq: password authentication failed for user "qsar"`, false},
		{"missing database", `pq: database "qsar_chat" does not exist`, false},
		{"unknown", "something else entirely", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryableError(errors.New(tt.errMsg)))
		})
	}

	assert.False(t, isRetryableError(nil))
}

func TestCalculateBackoff(t *testing.T) {
	baseDelay := 100 * time.Millisecond
	maxDelay := 5 * time.Second

	tests := []struct {
		name        string
		attempt     int
		expectedMin time.Duration
		expectedMax time.Duration
	}{
		{"attempt 0", 0, 50 * time.Millisecond, 150 * time.Millisecond},
		{"attempt 1", 1, 100 * time.Millisecond, 300 * time.Millisecond},
		{"attempt 2", 2, 200 * time.Millisecond, 600 * time.Millisecond},
		{"capped", 10, 2500 * time.Millisecond, 7500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 10; i++ {
				delay := calculateBackoff(tt.attempt, baseDelay, maxDelay)
				assert.GreaterOrEqual(t, delay, tt.expectedMin)
				assert.LessOrEqual(t, delay, tt.expectedMax)
			}
		})
	}
}

func TestOpenWithRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := PostgresConfig{Host: "127.0.0.1", Port: "1", Database: "qsar_chat", Username: "qsar"}
	_, err := OpenWithRetry(ctx, cfg, RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: time.Second})
	require.Error(t, err)
}

func TestOpenWithRetry_GivesUp(t *testing.T) {
	cfg := PostgresConfig{Host: "127.0.0.1", Port: "1", Database: "qsar_chat", Username: "qsar"}
	_, err := OpenWithRetry(context.Background(), cfg, RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (1) exceeded")
}
