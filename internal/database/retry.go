package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig controls how long Open keeps trying while Postgres starts up.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig suits a database container that is still booting.
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 5,
	BaseDelay:  200 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

// OpenWithRetry calls Open until it succeeds, the error is permanent or the
// retries are exhausted.
func OpenWithRetry(ctx context.Context, config PostgresConfig, retry RetryConfig) (*sql.DB, error) {
	var lastErr error

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		db, err := Open(ctx, config)
		if err == nil {
			return db, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return nil, err
		}
		if attempt == retry.MaxRetries {
			break
		}

		select {
		case <-time.After(calculateBackoff(attempt, retry.BaseDelay, retry.MaxDelay)):
		case <-ctx.Done():
			return nil, fmt.Errorf("database connection cancelled during retry: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", retry.MaxRetries, lastErr)
}

// isRetryableError reports whether err looks like a server that is not
// accepting connections yet, as opposed to bad credentials or a missing
// database.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()

	// Authentication and catalog errors never fix themselves
	if strings.Contains(errMsg, "password authentication failed") ||
		strings.Contains(errMsg, "does not exist") ||
		strings.Contains(errMsg, "no pg_hba.conf entry") {
		return false
	}

	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "the database system is starting up") ||
		strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded") ||
		strings.Contains(errMsg, "EOF") {
		return true
	}

	return false
}

// calculateBackoff returns baseDelay * 2^attempt capped at maxDelay, with
// jitter between 0.5x and 1.5x.
func calculateBackoff(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * baseDelay
	if delay > maxDelay {
		delay = maxDelay
	}

	jitter := 0.5 + rand.Float64()
	return time.Duration(float64(delay) * jitter)
}
