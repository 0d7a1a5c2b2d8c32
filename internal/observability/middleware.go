package observability

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the correlation ID in both directions
	RequestIDHeader = "X-Request-ID"

	// ClientIDHeader optionally identifies the calling client for logs and
	// rate limiting.
	ClientIDHeader = "X-Client-ID"
)

// routeLabel is the matched route pattern, which keeps metric label
// cardinality bounded.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

func responseSize(c *gin.Context) int {
	if size := c.Writer.Size(); size > 0 {
		return size
	}
	return 0
}

// RequestLoggingMiddleware attaches a correlation ID to the request context
// and logs one line per request once the handler chain has finished.
func RequestLoggingMiddleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		correlationID := c.GetHeader(RequestIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Set("correlation_id", correlationID)
		c.Header(RequestIDHeader, correlationID)

		ctx := WithCorrelationID(c.Request.Context(), correlationID)
		if clientID := c.GetHeader(ClientIDHeader); clientID != "" {
			ctx = WithUserID(ctx, clientID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":        c.Request.Method,
			"route":         routeLabel(c),
			"path":          c.Request.URL.Path,
			"status":        status,
			"duration_ms":   time.Since(start).Milliseconds(),
			"response_size": responseSize(c),
			"ip":            c.ClientIP(),
		}

		switch {
		case len(c.Errors) > 0:
			fields["errors"] = c.Errors.String()
			logger.Error(ctx, "HTTP request failed", c.Errors.Last().Err, fields)
		case status >= http.StatusInternalServerError:
			logger.Error(ctx, "HTTP request failed", nil, fields)
		case status >= http.StatusBadRequest:
			logger.Warn(ctx, "HTTP request completed with error status", fields)
		default:
			logger.Info(ctx, "HTTP request completed", fields)
		}
	}
}

// MetricsMiddleware records request count, latency and response size
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordHTTPMetrics(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start), responseSize(c))
	}
}

// RecoveryMiddleware turns a panic into a logged 500 with the standard error
// envelope.
func RecoveryMiddleware(logger *Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered interface{}) {
		logger.Error(c.Request.Context(), "Panic recovered", nil, map[string]interface{}{
			"panic":  fmt.Sprint(recovered),
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Error interno del servidor",
			},
		})
	})
}

// HealthHandler serves the aggregated health report. Degraded still
// answers 200; unhealthy answers 503.
func HealthHandler(checker *HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := checker.GetHealthResponse(c.Request.Context())

		statusCode := http.StatusOK
		if response.Status == HealthStatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, response)
	}
}

// MetricsEndpoint exposes the Prometheus registry as a gin handler.
func MetricsEndpoint() gin.HandlerFunc {
	return gin.WrapH(MetricsHandler())
}

// allowOrigin resolves the Access-Control-Allow-Origin value. allowed is "*"
// or a comma-separated list; a listed origin is echoed back, anything else
// gets no header.
func allowOrigin(allowed, origin string) string {
	if allowed == "" || allowed == "*" {
		return "*"
	}
	for _, candidate := range strings.Split(allowed, ",") {
		if candidate = strings.TrimSpace(candidate); candidate != "" && candidate == origin {
			return origin
		}
	}
	return ""
}

// CORSWithLogging adds CORS headers and answers preflight requests
func CORSWithLogging(logger *Logger, allowedOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		h := c.Writer.Header()
		if value := allowOrigin(allowedOrigins, origin); value != "" {
			h.Set("Access-Control-Allow-Origin", value)
			if value != "*" {
				h.Add("Vary", "Origin")
			}
		} else if origin != "" {
			logger.Debug(c.Request.Context(), "CORS origin rejected", map[string]interface{}{
				"origin": origin,
			})
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader+", "+ClientIDHeader)
		h.Set("Access-Control-Expose-Headers", RequestIDHeader+", Content-Disposition, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
