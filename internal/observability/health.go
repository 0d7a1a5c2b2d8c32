package observability

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a health check for a component
type HealthCheck struct {
	Name        string                 `json:"name"`
	Status      HealthStatus           `json:"status"`
	Message     string                 `json:"message,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"duration_ms"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// HealthChecker runs the registered dependency checks and caches each result
// for a TTL so frequent probes do not hammer Redis or Postgres.
type HealthChecker struct {
	service string
	version string
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	checks map[string]HealthCheckFunc
	cache  map[string]*HealthCheck
}

// HealthCheckFunc is a function that performs a health check
type HealthCheckFunc func(context.Context) *HealthCheck

// NewHealthChecker creates a health checker that caches results for 5 seconds
func NewHealthChecker(service, version string) *HealthChecker {
	return &HealthChecker{
		service: service,
		version: version,
		ttl:     5 * time.Second,
		now:     time.Now,
		checks:  make(map[string]HealthCheckFunc),
		cache:   make(map[string]*HealthCheck),
	}
}

// WithTTL overrides how long results are cached.
func (hc *HealthChecker) WithTTL(ttl time.Duration) *HealthChecker {
	hc.ttl = ttl
	return hc
}

// Register adds or replaces a named check and drops its cached result.
func (hc *HealthChecker) Register(name string, check HealthCheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
	delete(hc.cache, name)
}

// Check returns the result of every registered check. Cached results younger
// than the TTL are reused; stale checks run concurrently outside the lock.
func (hc *HealthChecker) Check(ctx context.Context) map[string]*HealthCheck {
	now := hc.now()
	results := make(map[string]*HealthCheck)
	stale := make(map[string]HealthCheckFunc)

	hc.mu.Lock()
	for name, check := range hc.checks {
		if cached, ok := hc.cache[name]; ok && now.Sub(cached.LastChecked) < hc.ttl {
			results[name] = cached
			continue
		}
		stale[name] = check
	}
	hc.mu.Unlock()

	if len(stale) == 0 {
		return results
	}

	var (
		wg      sync.WaitGroup
		freshMu sync.Mutex
	)
	fresh := make(map[string]*HealthCheck, len(stale))
	for name, check := range stale {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()
			result := check(ctx)
			result.LastChecked = hc.now()
			freshMu.Lock()
			fresh[name] = result
			freshMu.Unlock()
		}(name, check)
	}
	wg.Wait()

	hc.mu.Lock()
	for name, result := range fresh {
		if _, registered := hc.checks[name]; registered {
			hc.cache[name] = result
		}
		results[name] = result
	}
	hc.mu.Unlock()

	return results
}

func overallStatus(checks map[string]*HealthCheck) HealthStatus {
	status := HealthStatusHealthy
	for _, check := range checks {
		switch check.Status {
		case HealthStatusUnhealthy:
			return HealthStatusUnhealthy
		case HealthStatusDegraded:
			status = HealthStatusDegraded
		}
	}
	return status
}

// GetOverallStatus determines the overall health status
func (hc *HealthChecker) GetOverallStatus(ctx context.Context) HealthStatus {
	return overallStatus(hc.Check(ctx))
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status    HealthStatus            `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Checks    map[string]*HealthCheck `json:"checks"`
	Metadata  map[string]interface{}  `json:"metadata,omitempty"`
}

// GetHealthResponse returns a complete health response
func (hc *HealthChecker) GetHealthResponse(ctx context.Context) *HealthResponse {
	checks := hc.Check(ctx)

	return &HealthResponse{
		Status:    overallStatus(checks),
		Timestamp: hc.now(),
		Checks:    checks,
		Metadata: map[string]interface{}{
			"version": hc.version,
			"service": hc.service,
		},
	}
}

// pingCheck times a dependency ping; a failure reports failStatus.
func pingCheck(name, label string, timeout time.Duration, failStatus HealthStatus, ping func(context.Context) error) HealthCheckFunc {
	return func(ctx context.Context) *HealthCheck {
		start := time.Now()

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := ping(ctx)
		duration := time.Since(start)

		if err != nil {
			return &HealthCheck{
				Name:     name,
				Status:   failStatus,
				Message:  fmt.Sprintf("%s connection failed: %v", label, err),
				Duration: duration,
			}
		}

		return &HealthCheck{
			Name:     name,
			Status:   HealthStatusHealthy,
			Message:  label + " connection successful",
			Duration: duration,
			Metadata: map[string]interface{}{
				"response_time_ms": duration.Milliseconds(),
			},
		}
	}
}

// DatabaseHealthCheck creates a health check for database connectivity.
// History is best effort, so an outage only degrades the service.
func DatabaseHealthCheck(pingFunc func(context.Context) error) HealthCheckFunc {
	return pingCheck("database", "Database", 2*time.Second, HealthStatusDegraded, pingFunc)
}

// RedisHealthCheck creates a health check for Redis connectivity
func RedisHealthCheck(pingFunc func(context.Context) error) HealthCheckFunc {
	return pingCheck("redis", "Redis", 2*time.Second, HealthStatusUnhealthy, pingFunc)
}

// CatalogHealthCheck reports the size of the loaded reference catalog.
func CatalogHealthCheck(version string, substances, endpoints int) HealthCheckFunc {
	return func(ctx context.Context) *HealthCheck {
		status := HealthStatusHealthy
		message := "Catalog loaded"
		if endpoints == 0 {
			status = HealthStatusUnhealthy
			message = "Catalog has no endpoints"
		}
		return &HealthCheck{
			Name:    "catalog",
			Status:  status,
			Message: message,
			Metadata: map[string]interface{}{
				"version":    version,
				"substances": substances,
				"endpoints":  endpoints,
			},
		}
	}
}

// MemoryHealthCheck creates a health check for memory usage
func MemoryHealthCheck(getMemoryUsage func() (used, total uint64)) HealthCheckFunc {
	return func(ctx context.Context) *HealthCheck {
		used, total := getMemoryUsage()
		usagePercent := 0.0
		if total > 0 {
			usagePercent = float64(used) / float64(total) * 100
		}

		status := HealthStatusHealthy
		message := "Memory usage normal"

		if usagePercent > 90 {
			status = HealthStatusUnhealthy
			message = "Memory usage critical"
		} else if usagePercent > 75 {
			status = HealthStatusDegraded
			message = "Memory usage high"
		}

		return &HealthCheck{
			Name:    "memory",
			Status:  status,
			Message: message,
			Metadata: map[string]interface{}{
				"used_bytes":    used,
				"total_bytes":   total,
				"usage_percent": usagePercent,
			},
		}
	}
}

// RuntimeMemoryUsage reports heap in use against memory obtained from the OS.
func RuntimeMemoryUsage() (used, total uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapInuse, m.Sys
}
