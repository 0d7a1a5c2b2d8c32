package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/seanankenbruck/qsar-chat/internal/predictor"
)

// DefaultUserQuery is recorded when a report request carries no query text.
const DefaultUserQuery = "Consulta QSAR"

// Data is everything a report document is rendered from.
type Data struct {
	ID          string             `json:"id"`
	Substance   string             `json:"substance"`
	UserQuery   string             `json:"user_query"`
	GeneratedAt time.Time          `json:"generated_at"`
	Results     []predictor.Result `json:"results"`
}

// spanishTimeLayout matches the es-ES locale rendering "1/3/2024, 10:30:00".
const spanishTimeLayout = "2/1/2006, 15:04:05"

// FormatSpanishTime renders t the way Spanish locales print date and time.
func FormatSpanishTime(t time.Time) string {
	return t.Format(spanishTimeLayout)
}

// Document renders the plain-text report for d.
func Document(d Data) string {
	var sb strings.Builder

	sb.WriteString("REPORTE DE ANÁLISIS QSAR\n")
	sb.WriteString("========================\n\n")
	fmt.Fprintf(&sb, "Sustancia analizada: %s\n", d.Substance)
	fmt.Fprintf(&sb, "Consulta original: %q\n", d.UserQuery)
	fmt.Fprintf(&sb, "Fecha de generación: %s\n\n", FormatSpanishTime(d.GeneratedAt))

	sb.WriteString("RESULTADOS TOXICOLÓGICOS:\n")
	for _, r := range d.Results {
		fmt.Fprintf(&sb, "\n- %s\n", r.Endpoint)
		fmt.Fprintf(&sb, "  Valor: %s\n", valueWithUnit(r.Prediction))
		fmt.Fprintf(&sb, "  Confianza: %d%%\n", predictor.ConfidencePercent(r.Prediction.Confidence))
		fmt.Fprintf(&sb, "  Relevancia regulatoria: %s\n", r.RegulatoryRelevance)
		fmt.Fprintf(&sb, "  Explicación: %s\n", r.Explanation)
	}

	sb.WriteString("\nCONCLUSIONES:\n")
	sb.WriteString("Este reporte ha sido generado mediante modelos QSAR (Quantitative Structure-Activity Relationship)\n")
	sb.WriteString("para evaluación de riesgo químico según directrices OECD.\n\n")
	sb.WriteString("---\n")
	sb.WriteString("Generado por: Regulator.IA - QSAR Toolbox Integrator\n")
	sb.WriteString("Sistema de evaluación toxicológica automatizada\n")

	return sb.String()
}

// Preview returns the first n runes of content followed by "...".
func Preview(content string, n int) string {
	runes := []rune(content)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}
