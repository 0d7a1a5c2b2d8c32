package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnhancedError_Error(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeReportStore, "Error accediendo al almacén de reportes").
		WithDetails("Operación fallida: save")

	assert.Equal(t, "[REPORT_STORE_FAILED] Error accediendo al almacén de reportes: Operación fallida: save (cause: connection refused)", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestEnhancedError_UserMessage(t *testing.T) {
	err := NewReportNotFoundError("abc")

	msg := err.UserMessage()
	assert.Contains(t, msg, "Reporte no encontrado")
	assert.Contains(t, msg, "Detalles: No existe un reporte con id 'abc'")
	assert.Contains(t, msg, "Sugerencia: Genera el reporte de nuevo")
	assert.Equal(t, "abc", err.Metadata["report_id"])
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *EnhancedError
		code ErrorCode
		msg  string
	}{
		{"missing message", NewMissingMessageError(), ErrCodeMissingRequired, "Mensaje requerido"},
		{"incomplete report", NewIncompleteReportError("results"), ErrCodeMissingRequired, "Datos de reporte incompletos"},
		{"invalid input", NewInvalidInputError("limit", "debe ser positivo"), ErrCodeInvalidInput, "Entrada inválida"},
		{"prediction", NewPredictionError(stderrors.New("x"), "benceno"), ErrCodePredictionFailed, "Error interno del servidor"},
		{"report generation", NewReportGenerationError(stderrors.New("x")), ErrCodeReportGeneration, "Error generando reporte PDF"},
		{"token", NewInvalidReportTokenError(nil), ErrCodeInvalidReportToken, "Enlace de descarga no válido"},
		{"rate limited", NewRateLimitedError(30), ErrCodeRateLimited, "Demasiadas solicitudes"},
		{"internal", NewInternalError(stderrors.New("x")), ErrCodeInternal, "Error interno del servidor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.msg, tt.err.Message)
		})
	}

	assert.Equal(t, "results", NewIncompleteReportError("results").Metadata["field"])
	assert.Equal(t, true, NewPredictionError(nil, "x").Metadata["retryable"])
}
