package predictor

import (
	"fmt"
	"math"
	"strings"

	"github.com/seanankenbruck/qsar-chat/internal/catalog"
)

// ConfidencePercent renders a 0-1 confidence as a whole percentage.
func ConfidencePercent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

var explanationTemplates = map[string]string{
	"acute_oral":         "Predicción de LD50 oral: %s %s. Confianza: %d%%. Basado en modelos QSAR de toxicidad aguda oral.",
	"acute_dermal":       "Predicción de LD50 dérmica: %s %s. Confianza: %d%%. Basado en modelos de penetración dérmica y toxicidad sistémica.",
	"acute_inhalation":   "Predicción de LC50 inhalatoria: %s %s. Confianza: %d%%. Basado en modelos de toxicocinética pulmonar.",
	"bioaccumulation":    "Predicción de factor de bioconcentración: %s %s. Confianza: %d%%. Basado en lipofilicidad y peso molecular.",
	"skin_irritation":    "Predicción de irritación dérmica: %s. Confianza: %d%%. Basado en descriptores fisicoquímicos y modelos de irritación local.",
	"eye_irritation":     "Predicción de irritación ocular: %s. Confianza: %d%%. Basado en modelos de irritación mucosa y penetración ocular.",
	"skin_sensitization": "Predicción de sensibilización dérmica: %s. Confianza: %d%%. Basado en modelos de activación del sistema inmune.",
	"biodegradation":     "Predicción de biodegradación: %s. Confianza: %d%%. Basado en modelos de biodisponibilidad y metabolismo microbiano.",
}

// Explain returns the Spanish explanation for a table prediction.
func Explain(endpoint string, p Prediction) string {
	pct := ConfidencePercent(p.Confidence)
	tmpl, ok := explanationTemplates[endpoint]
	if !ok {
		return fmt.Sprintf("Predicción: %s. Confianza: %d%%.", p.Value, pct)
	}
	if strings.Count(tmpl, "%s") == 2 {
		return fmt.Sprintf(tmpl, p.Value, p.Unit, pct)
	}
	return fmt.Sprintf(tmpl, p.Value, pct)
}

// ExplainSimulated is the explanation used for substances outside the
// training set.
func ExplainSimulated(substance string) string {
	return "Predicción basada en modelos QSAR para sustancia no incluida en la base de datos de entrenamiento: " + substance
}

// RegulatoryRelevance returns the Spanish regulatory statement for a
// prediction. ep supplies the guideline reference.
func RegulatoryRelevance(ep catalog.Endpoint, p Prediction) string {
	guideline := ep.OECDGuideline
	if guideline == "" {
		guideline = "OECD"
	}

	switch ep.Code {
	case "acute_oral":
		if !p.Value.IsNumeric() {
			break
		}
		switch v := p.Value.Float(); {
		case v < 300:
			return "⚠️ ALTA TOXICIDAD - Requiere clasificación GHS Categoría 1-2. Relevante para " + guideline
		case v < 2000:
			return "⚠️ TOXICIDAD MODERADA - Posible clasificación GHS Categoría 3. Relevante para " + guideline
		default:
			return "✅ BAJA TOXICIDAD - No requiere clasificación especial. Conforme a " + guideline
		}

	// Matching is case-sensitive: only a capitalised "Irritante" classifies,
	// so "Ligeramente irritante" and "No irritante" need no classification.
	case "skin_irritation":
		v := p.Value.String()
		switch {
		case strings.Contains(v, "Corrosivo"):
			return "🚨 CORROSIVO - Clasificación GHS Categoría 1A/1B/1C obligatoria. Crítico para " + guideline
		case strings.Contains(v, "Irritante"):
			return "⚠️ IRRITANTE - Clasificación GHS Categoría 2 requerida. Relevante para " + guideline
		default:
			return "✅ NO IRRITANTE - Sin clasificación requerida. Conforme a " + guideline
		}

	case "skin_sensitization":
		if strings.Contains(p.Value.String(), "Sensibilizante") {
			return "⚠️ SENSIBILIZANTE - Clasificación GHS Categoría 1 requerida. Crítico para " + guideline
		}
		return "✅ NO SENSIBILIZANTE - Sin clasificación requerida. Conforme a " + guideline

	case "bioaccumulation":
		if !p.Value.IsNumeric() {
			break
		}
		switch v := p.Value.Float(); {
		case v > 2000:
			return "🚨 ALTO POTENCIAL DE BIOACUMULACIÓN - Relevante para REACH Anexo XIII. Crítico para " + guideline
		case v > 100:
			return "⚠️ POTENCIAL BIOACUMULACIÓN MODERADA - Considerar estudios adicionales. Relevante para " + guideline
		default:
			return "✅ BAJO POTENCIAL DE BIOACUMULACIÓN - Conforme a " + guideline
		}
	}

	return "Relevante para evaluación regulatoria según " + guideline
}
