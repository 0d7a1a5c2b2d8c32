// Package report renders chat summaries and downloadable QSAR reports, and
// stores generated reports behind signed download links.
package report

import (
	"fmt"
	"strings"

	"github.com/seanankenbruck/qsar-chat/internal/catalog"
	"github.com/seanankenbruck/qsar-chat/internal/predictor"
)

// RiskIcon maps a risk category to the icon shown next to a result.
func RiskIcon(category catalog.RiskCategory) string {
	switch category {
	case catalog.RiskVeryHigh:
		return "🚨"
	case catalog.RiskHigh:
		return "⚠️"
	case catalog.RiskModerate:
		return "🔶"
	case catalog.RiskLow:
		return "✅"
	default:
		return "🔍"
	}
}

func valueWithUnit(p predictor.Prediction) string {
	return strings.TrimSpace(p.Value.String() + " " + p.Unit)
}

// Summary renders the Spanish chat answer for a set of results.
func Summary(substance string, results []predictor.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No se encontraron predicciones para la sustancia %q.", substance)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Análisis QSAR completado para **%s**:\n\n", substance)

	for _, r := range results {
		fmt.Fprintf(&sb, "%s **%s**\n", RiskIcon(r.Prediction.Category), r.Endpoint)
		fmt.Fprintf(&sb, "   Predicción: %s\n", valueWithUnit(r.Prediction))
		fmt.Fprintf(&sb, "   Confianza: %d%%\n", predictor.ConfidencePercent(r.Prediction.Confidence))
		fmt.Fprintf(&sb, "   %s\n\n", r.RegulatoryRelevance)
	}

	if len(results) > 1 {
		fmt.Fprintf(&sb, "✅ **Análisis completo**: Se evaluaron %d endpoints toxicológicos.\n", len(results))
		sb.WriteString(`📊 **Reporte PDF disponible** - Solicita "genera reporte PDF" para obtener documentación completa.`)
	}

	return sb.String()
}
