// Package ratelimit provides in-memory per-client sliding-window rate limiting.
package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seanankenbruck/qsar-chat/internal/errors"
	"github.com/seanankenbruck/qsar-chat/internal/observability"
)

var logger = observability.NewLogger("ratelimit")

// clientWindow tracks requests for a single client
type clientWindow struct {
	requests []time.Time
	lastSeen time.Time
}

// Limiter allows at most limit requests per client within window
type Limiter struct {
	limit   int
	window  time.Duration
	clients map[string]*clientWindow
	mutex   sync.Mutex
	now     func() time.Time
}

// New creates a limiter. A non-positive limit disables limiting.
func New(limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientWindow),
		now:     time.Now,
	}
}

// Enabled reports whether requests are limited at all.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limit > 0
}

// Allow records a request for clientID. When the client is over its budget
// it returns false and how long until the oldest request leaves the window.
func (l *Limiter) Allow(clientID string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()
	client, exists := l.clients[clientID]
	if !exists {
		client = &clientWindow{}
		l.clients[clientID] = client
	}
	client.lastSeen = now

	windowStart := now.Add(-l.window)
	valid := client.requests[:0]
	for _, req := range client.requests {
		if req.After(windowStart) {
			valid = append(valid, req)
		}
	}
	client.requests = valid

	if len(client.requests) >= l.limit {
		return false, client.requests[0].Sub(windowStart)
	}

	client.requests = append(client.requests, now)
	return true, 0
}

// Cleanup removes clients with no requests in the last window
func (l *Limiter) Cleanup() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	cutoff := l.now().Add(-l.window)
	removed := 0
	for clientID, client := range l.clients {
		if client.lastSeen.Before(cutoff) {
			delete(l.clients, clientID)
			removed++
		}
	}
	return removed
}

// Run cleans up idle clients every interval until ctx is done
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := l.Cleanup()
			fields := l.GetStats()
			fields["removed"] = removed
			logger.Debug(ctx, "Rate limiter cleanup", fields)
		}
	}
}

// GetStats returns rate limiting statistics
func (l *Limiter) GetStats() map[string]interface{} {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return map[string]interface{}{
		"total_clients": len(l.clients),
		"limit":         l.limit,
		"window":        l.window.String(),
	}
}

// ClientID keys the limiter on the client IP as resolved through the
// trusted proxies. X-Client-ID is caller-supplied and only labels logs.
func ClientID(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// Middleware rejects over-budget clients with 429 and a Retry-After header
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := l.Allow(ClientID(c))
		if allowed {
			c.Next()
			return
		}

		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		observability.RecordRateLimited()
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": errors.NewRateLimitedError(seconds),
		})
	}
}
