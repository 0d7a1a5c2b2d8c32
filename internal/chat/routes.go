package chat

import (
	stderrors "errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/seanankenbruck/qsar-chat/internal/errors"
	"github.com/seanankenbruck/qsar-chat/internal/history"
	"github.com/seanankenbruck/qsar-chat/internal/observability"
	"github.com/seanankenbruck/qsar-chat/internal/ratelimit"
	"github.com/seanankenbruck/qsar-chat/internal/report"
)

// RouterConfig holds HTTP concerns that live outside the processor
type RouterConfig struct {
	CORSOrigin     string
	TrustedProxies []string
	RateLimiter    *ratelimit.Limiter // nil disables rate limiting
}

// SetupRoutes configures HTTP routes
func (p *Processor) SetupRoutes(cfg RouterConfig) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	logger := observability.NewLogger("http")
	r.Use(observability.RecoveryMiddleware(logger))
	r.Use(observability.RequestLoggingMiddleware(logger))
	r.Use(observability.MetricsMiddleware())
	r.Use(observability.CORSWithLogging(logger, cfg.CORSOrigin))

	if p.healthChecker != nil {
		r.GET("/health", observability.HealthHandler(p.healthChecker))
	} else {
		r.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  observability.HealthStatusHealthy,
				"version": p.catalog.Version(),
				"service": "qsar-chat",
			})
		})
	}
	r.GET("/metrics", observability.MetricsEndpoint())

	api := r.Group("/api")
	if cfg.RateLimiter.Enabled() {
		api.Use(cfg.RateLimiter.Middleware())
	}
	{
		api.POST("/chat", p.handleChat)
		api.GET("/examples", p.handleExamples)
		api.GET("/endpoints", p.handleEndpoints)
		api.POST("/generate-report", p.handleGenerateReport)
		api.GET("/download-report/:id", p.handleDownloadReport)
		api.GET("/history", p.handleHistory)
	}

	return r, nil
}

func (p *Processor) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, formatErrorResponse(errors.NewMissingMessageError()))
		return
	}

	response, err := p.ProcessMessage(c.Request.Context(), req.Message)
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, response)
}

func (p *Processor) handleExamples(c *gin.Context) {
	c.JSON(http.StatusOK, p.CatalogInfo())
}

func (p *Processor) handleEndpoints(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"endpoints":        p.Endpoints(),
		"default_endpoint": p.catalog.DefaultEndpoint(),
		"version":          p.catalog.Version(),
	})
}

func (p *Processor) handleGenerateReport(c *gin.Context) {
	var req report.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		enhancedErr := errors.NewInvalidInputError("request body", err.Error())
		c.JSON(http.StatusBadRequest, formatErrorResponse(enhancedErr))
		return
	}

	generated, err := p.GenerateReport(c.Request.Context(), req)
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, generated)
}

func (p *Processor) handleDownloadReport(c *gin.Context) {
	d, err := p.DownloadReport(c.Request.Context(), c.Param("id"), c.Query("token"))
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": d.Filename,
	}))
	c.Data(http.StatusOK, d.ContentType, []byte(d.Content))
}

func (p *Processor) handleHistory(c *gin.Context) {
	limit := history.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			enhancedErr := errors.NewInvalidInputError("limit", "debe ser un entero positivo")
			c.JSON(http.StatusBadRequest, formatErrorResponse(enhancedErr))
			return
		}
		limit = n
	}

	entries, err := p.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
		"backend": p.historyBackend,
	})
}

// formatErrorResponse formats an error into a user-friendly response.
// Errors that are not EnhancedErrors are reported as internal errors
// without exposing their text.
func formatErrorResponse(err error) gin.H {
	var enhancedErr *errors.EnhancedError
	if !stderrors.As(err, &enhancedErr) {
		enhancedErr = errors.NewInternalError(err)
	}

	body := gin.H{
		"code":    enhancedErr.Code,
		"message": enhancedErr.Message,
	}
	if enhancedErr.Details != "" {
		body["details"] = enhancedErr.Details
	}
	if enhancedErr.Suggestion != "" {
		body["suggestion"] = enhancedErr.Suggestion
	}
	if enhancedErr.Documentation != "" {
		body["documentation"] = enhancedErr.Documentation
	}
	if len(enhancedErr.Metadata) > 0 {
		body["metadata"] = enhancedErr.Metadata
	}
	return gin.H{"error": body}
}

// getErrorStatusCode returns the appropriate HTTP status code for an error
func getErrorStatusCode(err error) int {
	var enhancedErr *errors.EnhancedError
	if !stderrors.As(err, &enhancedErr) {
		return http.StatusInternalServerError
	}

	switch enhancedErr.Code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeMissingRequired:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidReportToken:
		return http.StatusUnauthorized
	case errors.ErrCodeReportNotFound:
		return http.StatusNotFound
	case errors.ErrCodeRequestCancelled:
		return http.StatusRequestTimeout
	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case errors.ErrCodeHistoryUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
