// Package chat turns Spanish chat messages into QSAR predictions and serves
// them over HTTP.
package chat

import (
	"context"
	stderrors "errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/seanankenbruck/qsar-chat/internal/catalog"
	"github.com/seanankenbruck/qsar-chat/internal/errors"
	"github.com/seanankenbruck/qsar-chat/internal/history"
	"github.com/seanankenbruck/qsar-chat/internal/interpreter"
	"github.com/seanankenbruck/qsar-chat/internal/observability"
	"github.com/seanankenbruck/qsar-chat/internal/predictor"
	"github.com/seanankenbruck/qsar-chat/internal/report"
)

// MaxMessageLength bounds the accepted chat message, in runes.
const MaxMessageLength = 1000

// ResponseType discriminates chat responses.
type ResponseType string

const (
	ResponseSuccess         ResponseType = "success"
	ResponseValidationError ResponseType = "validation_error"
)

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the answer to a chat message
type ChatResponse struct {
	Type        ResponseType       `json:"type"`
	Query       *interpreter.Query `json:"query,omitempty"`
	Results     []predictor.Result `json:"results,omitempty"`
	ResponseES  string             `json:"response_es,omitempty"`
	Suggestions []string           `json:"suggestions,omitempty"`
	Examples    []string           `json:"examples,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// CatalogInfo is served by GET /api/examples
type CatalogInfo struct {
	Examples            []string      `json:"examples"`
	AvailableSubstances []string      `json:"available_substances"`
	SimulatorStats      catalog.Stats `json:"simulator_stats"`
}

// Lookup resolves a structured query into per-endpoint results.
type Lookup interface {
	Lookup(ctx context.Context, substance string, codes []string) ([]predictor.Result, error)
}

// Processor is the chat request handler
type Processor struct {
	catalog        *catalog.Catalog
	interpreter    *interpreter.Interpreter
	lookup         Lookup
	reports        *report.Generator
	history        history.Recorder
	historyBackend string
	healthChecker  *observability.HealthChecker
	logger         *observability.Logger
	now            func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithHistory records every interaction in r. backend labels metrics.
func WithHistory(backend string, r history.Recorder) Option {
	return func(p *Processor) {
		p.history = r
		p.historyBackend = backend
	}
}

// WithReports enables the report endpoints.
func WithReports(g *report.Generator) Option {
	return func(p *Processor) { p.reports = g }
}

// WithHealthChecker serves checker on /health.
func WithHealthChecker(checker *observability.HealthChecker) Option {
	return func(p *Processor) { p.healthChecker = checker }
}

// WithClock replaces time.Now for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a chat processor over c and lookup.
func NewProcessor(c *catalog.Catalog, lookup Lookup, opts ...Option) *Processor {
	p := &Processor{
		catalog:     c,
		interpreter: interpreter.New(c),
		lookup:      lookup,
		logger:      observability.NewLogger("chat"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reports == nil {
		p.reports = report.NewGenerator(report.NewMemoryStore(time.Hour), nil)
	}
	if p.history == nil {
		p.history = history.NewMemoryRecorder(history.MaxLimit)
		p.historyBackend = "memory"
	}
	return p
}

// ProcessMessage interprets message, looks up predictions and renders the
// Spanish answer. Uninterpretable messages yield a validation_error
// response, not an error.
func (p *Processor) ProcessMessage(ctx context.Context, message string) (*ChatResponse, error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		observability.RecordChatMetrics(outcome, time.Since(start))
	}()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.NewMissingMessageError()
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, errors.NewInvalidInputError("message", "el mensaje supera la longitud máxima permitida").
			WithMetadata("max_length", MaxMessageLength)
	}

	interp := p.interpreter.Interpret(message)
	p.logger.Info(ctx, "Interpreted chat message", map[string]interface{}{
		"valid":     interp.Valid,
		"substance": interp.Query.Substance,
		"endpoints": interp.Query.Endpoints,
	})

	if !interp.Valid {
		outcome = string(ResponseValidationError)
		p.record(ctx, message, interp, 0)
		return &ChatResponse{
			Type:        ResponseValidationError,
			Suggestions: interp.Suggestions,
			Examples:    interp.Examples,
			Timestamp:   p.now(),
		}, nil
	}

	query := interp.Query
	results, err := p.lookup.Lookup(ctx, query.Substance, query.Endpoints)
	if err != nil {
		p.logger.Error(ctx, "Prediction lookup failed", err, map[string]interface{}{
			"substance": query.Substance,
		})
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewCancelledError(err)
		}
		return nil, errors.NewPredictionError(err, query.Substance)
	}

	outcome = string(ResponseSuccess)
	p.record(ctx, message, interp, len(results))

	return &ChatResponse{
		Type:       ResponseSuccess,
		Query:      &query,
		Results:    results,
		ResponseES: report.Summary(query.Substance, results),
		Timestamp:  p.now(),
	}, nil
}

// record stores the interaction. Failures are logged and otherwise ignored.
func (p *Processor) record(ctx context.Context, message string, interp interpreter.Interpretation, resultCount int) {
	err := p.history.Record(ctx, history.Entry{
		Message:     message,
		Substance:   interp.Query.Substance,
		Endpoints:   interp.Query.Endpoints,
		Valid:       interp.Valid,
		ResultCount: resultCount,
	})
	observability.RecordHistoryMetrics(p.historyBackend, err)
	if err != nil {
		p.logger.Warn(ctx, "Failed to record chat history", map[string]interface{}{
			"backend": p.historyBackend,
			"error":   err.Error(),
		})
	}
}

// CatalogInfo lists example queries, known substances and simulator stats.
func (p *Processor) CatalogInfo() CatalogInfo {
	return CatalogInfo{
		Examples:            p.catalog.Examples(),
		AvailableSubstances: p.catalog.SubstanceNames(),
		SimulatorStats:      p.catalog.Stats(),
	}
}

// Endpoints returns the endpoint catalog.
func (p *Processor) Endpoints() []catalog.Endpoint {
	return p.catalog.Endpoints()
}

// GenerateReport stores a report for a previous answer.
func (p *Processor) GenerateReport(ctx context.Context, req report.Request) (report.Generated, error) {
	out, err := p.reports.Generate(ctx, req)
	if err == nil {
		return out, nil
	}

	var incomplete *report.IncompleteError
	if stderrors.As(err, &incomplete) {
		return report.Generated{}, errors.NewIncompleteReportError(incomplete.Field)
	}
	return report.Generated{}, errors.NewReportGenerationError(err)
}

// DownloadReport renders a stored report.
func (p *Processor) DownloadReport(ctx context.Context, id, token string) (report.Download, error) {
	d, err := p.reports.Download(ctx, id, token)
	switch {
	case err == nil:
		return d, nil
	case stderrors.Is(err, report.ErrInvalidToken):
		return report.Download{}, errors.NewInvalidReportTokenError(err)
	case stderrors.Is(err, report.ErrNotFound):
		return report.Download{}, errors.NewReportNotFoundError(id)
	default:
		return report.Download{}, errors.NewReportStoreError(err, "get")
	}
}

// History returns the most recent interactions.
func (p *Processor) History(ctx context.Context, limit int) ([]history.Entry, error) {
	entries, err := p.history.Recent(ctx, limit)
	if err != nil {
		return nil, errors.NewHistoryUnavailableError(err)
	}
	return entries, nil
}
