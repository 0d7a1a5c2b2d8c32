// Package errors provides enhanced error types with helpful context and suggestions
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Input validation errors
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"

	// Prediction errors
	ErrCodePredictionFailed ErrorCode = "PREDICTION_FAILED"
	ErrCodeRequestCancelled ErrorCode = "REQUEST_CANCELLED"

	// Report errors
	ErrCodeReportGeneration   ErrorCode = "REPORT_GENERATION_FAILED"
	ErrCodeReportNotFound     ErrorCode = "REPORT_NOT_FOUND"
	ErrCodeInvalidReportToken ErrorCode = "INVALID_REPORT_TOKEN"
	ErrCodeReportStore        ErrorCode = "REPORT_STORE_FAILED"

	// History errors
	ErrCodeHistoryUnavailable ErrorCode = "HISTORY_UNAVAILABLE"

	// Traffic errors
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// EnhancedError represents an error with additional context and helpful information
type EnhancedError struct {
	Code          ErrorCode              `json:"code"`
	Message       string                 `json:"message"`
	Details       string                 `json:"details,omitempty"`
	Suggestion    string                 `json:"suggestion,omitempty"`
	Documentation string                 `json:"documentation,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Cause         error                  `json:"-"`
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if e.Details != "" {
		sb.WriteString(fmt.Sprintf(": %s", e.Details))
	}
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(" (cause: %v)", e.Cause))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain unwrapping
func (e *EnhancedError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly error message with suggestions
func (e *EnhancedError) UserMessage() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString(fmt.Sprintf("\n\nDetalles: %s", e.Details))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n\nSugerencia: %s", e.Suggestion))
	}

	if e.Documentation != "" {
		sb.WriteString(fmt.Sprintf("\n\nMás información: %s", e.Documentation))
	}

	return sb.String()
}

// New creates a new EnhancedError
func New(code ErrorCode, message string) *EnhancedError {
	return &EnhancedError{
		Code:     code,
		Message:  message,
		Metadata: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with enhanced context
func Wrap(err error, code ErrorCode, message string) *EnhancedError {
	return &EnhancedError{
		Code:     code,
		Message:  message,
		Cause:    err,
		Metadata: make(map[string]interface{}),
	}
}

// WithDetails adds detailed information about the error
func (e *EnhancedError) WithDetails(details string) *EnhancedError {
	e.Details = details
	return e
}

// WithSuggestion adds a suggestion on how to fix the error
func (e *EnhancedError) WithSuggestion(suggestion string) *EnhancedError {
	e.Suggestion = suggestion
	return e
}

// WithMetadata adds additional metadata to the error
func (e *EnhancedError) WithMetadata(key string, value interface{}) *EnhancedError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Common error constructors with pre-configured messages

// NewMissingFieldError creates an error for a required request field
func NewMissingFieldError(field, message string) *EnhancedError {
	return New(ErrCodeMissingRequired, message).
		WithDetails(fmt.Sprintf("El campo '%s' es obligatorio", field)).
		WithMetadata("field", field)
}

// NewMissingMessageError is returned when a chat request carries no text
func NewMissingMessageError() *EnhancedError {
	return NewMissingFieldError("message", "Mensaje requerido").
		WithSuggestion(`Escribe una consulta, por ejemplo: "¿El benceno es irritante dérmico según QSAR?"`)
}

// NewIncompleteReportError is returned when report data lacks a substance or results
func NewIncompleteReportError(field string) *EnhancedError {
	return NewMissingFieldError(field, "Datos de reporte incompletos").
		WithSuggestion("Envía la sustancia y los resultados obtenidos en /api/chat.")
}

// NewInvalidInputError creates an error for invalid input
func NewInvalidInputError(field string, reason string) *EnhancedError {
	return New(ErrCodeInvalidInput, "Entrada inválida").
		WithDetails(fmt.Sprintf("El campo '%s' no es válido: %s", field, reason)).
		WithMetadata("field", field)
}

// NewPredictionError creates an error for prediction lookup failures
func NewPredictionError(err error, substance string) *EnhancedError {
	return Wrap(err, ErrCodePredictionFailed, "Error interno del servidor").
		WithDetails(fmt.Sprintf("No se pudieron obtener predicciones para '%s'", substance)).
		WithSuggestion("Inténtalo de nuevo en unos momentos.").
		WithMetadata("retryable", true)
}

// NewCancelledError is returned when the client gave up before an answer was ready
func NewCancelledError(err error) *EnhancedError {
	return Wrap(err, ErrCodeRequestCancelled, "Consulta cancelada").
		WithMetadata("retryable", true)
}

// NewReportGenerationError creates an error for report generation failures
func NewReportGenerationError(err error) *EnhancedError {
	return Wrap(err, ErrCodeReportGeneration, "Error generando reporte PDF").
		WithMetadata("retryable", true)
}

// NewReportNotFoundError creates an error for unknown or expired reports
func NewReportNotFoundError(id string) *EnhancedError {
	return New(ErrCodeReportNotFound, "Reporte no encontrado").
		WithDetails(fmt.Sprintf("No existe un reporte con id '%s' o ha caducado", id)).
		WithSuggestion("Genera el reporte de nuevo con /api/generate-report.").
		WithMetadata("report_id", id)
}

// NewInvalidReportTokenError creates an error for missing or bad download tokens
func NewInvalidReportTokenError(err error) *EnhancedError {
	return Wrap(err, ErrCodeInvalidReportToken, "Enlace de descarga no válido").
		WithDetails("El token de descarga falta, ha caducado o no corresponde a este reporte").
		WithSuggestion("Usa el enlace pdf_url devuelto por /api/generate-report.")
}

// NewReportStoreError creates an error for report storage failures
func NewReportStoreError(err error, operation string) *EnhancedError {
	return Wrap(err, ErrCodeReportStore, "Error accediendo al almacén de reportes").
		WithDetails(fmt.Sprintf("Operación fallida: %s", operation)).
		WithMetadata("retryable", true)
}

// NewHistoryUnavailableError creates an error for history read failures
func NewHistoryUnavailableError(err error) *EnhancedError {
	return Wrap(err, ErrCodeHistoryUnavailable, "Historial no disponible").
		WithMetadata("retryable", true)
}

// NewRateLimitedError creates an error for clients over their request budget
func NewRateLimitedError(retryAfterSeconds int) *EnhancedError {
	return New(ErrCodeRateLimited, "Demasiadas solicitudes").
		WithDetails(fmt.Sprintf("Has superado el límite de solicitudes; reintenta en %d s", retryAfterSeconds)).
		WithMetadata("retry_after_seconds", retryAfterSeconds)
}

// NewInternalError wraps an unexpected failure
func NewInternalError(err error) *EnhancedError {
	return Wrap(err, ErrCodeInternal, "Error interno del servidor")
}
