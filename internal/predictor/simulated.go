package predictor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/seanankenbruck/qsar-chat/internal/catalog"
)

var riskLevels = []catalog.RiskCategory{
	catalog.RiskLow,
	catalog.RiskModerate,
	catalog.RiskHigh,
	catalog.RiskVeryHigh,
}

// distribution describes how one endpoint is simulated from a single draw r
// in [0, 1). Higher draws mean lower hazard.
type distribution struct {
	confMin, confMax float64
	// r above thresholds[i] gives riskLevels[i]; below all gives the next level.
	thresholds []float64
	value      func(r float64) catalog.Value
	unit       string
}

func numericRange(min, span float64) func(float64) catalog.Value {
	return func(r float64) catalog.Value {
		return catalog.Number(math.Round(min + span*r))
	}
}

// severityScale picks from phrases ordered mild to severe, so a high draw
// lands on a mild phrase and agrees with the risk level.
func severityScale(phrases ...string) func(float64) catalog.Value {
	return func(r float64) catalog.Value {
		i := int(math.Floor((1 - r) * float64(len(phrases))))
		if i >= len(phrases) {
			i = len(phrases) - 1
		}
		if i < 0 {
			i = 0
		}
		return catalog.Text(phrases[i])
	}
}

var distributions = map[string]distribution{
	"acute_oral": {
		confMin: 0.60, confMax: 0.90, thresholds: []float64{0.7, 0.4},
		value: numericRange(300, 5000), unit: "mg/kg",
	},
	"acute_dermal": {
		confMin: 0.55, confMax: 0.90, thresholds: []float64{0.8, 0.5},
		value: numericRange(2000, 18000), unit: "mg/kg",
	},
	"acute_inhalation": {
		confMin: 0.58, confMax: 0.90, thresholds: []float64{0.7, 0.4},
		value: numericRange(1000, 60000), unit: "mg/m³",
	},
	"skin_irritation": {
		confMin: 0.50, confMax: 0.90, thresholds: []float64{0.75, 0.5, 0.25},
		value: severityScale("No irritante", "Ligeramente irritante", "Irritante", "Corrosivo"),
	},
	"eye_irritation": {
		confMin: 0.52, confMax: 0.90, thresholds: []float64{0.75, 0.5},
		value: severityScale("No irritante", "Irritante leve", "Irritante moderado", "Irritante severo"),
	},
	"skin_sensitization": {
		confMin: 0.48, confMax: 0.90, thresholds: []float64{0.7, 0.4},
		value: severityScale("No sensibilizante", "Sensibilizante débil", "Sensibilizante", "Sensibilizante fuerte"),
	},
	"bioaccumulation": {
		confMin: 0.45, confMax: 0.90, thresholds: []float64{0.8, 0.6},
		value: func(r float64) catalog.Value {
			return catalog.Number(math.Round((1+(1-r)*1000)*10) / 10)
		},
		unit: "BCF",
	},
	"biodegradation": {
		confMin: 0.50, confMax: 0.85, thresholds: []float64{0.75, 0.5},
		value: severityScale("Fácilmente biodegradable", "Biodegradable", "Lentamente biodegradable", "No biodegradable"),
	},
}

const (
	unavailableValue      = "No disponible"
	unavailableConfidence = 0.30
)

// ConfidenceRange returns the half-open [min, max) confidence interval the
// simulator uses for endpoint.
func ConfidenceRange(endpoint string) (min, max float64, ok bool) {
	d, ok := distributions[endpoint]
	if !ok {
		return 0, 0, false
	}
	return d.confMin, d.confMax, true
}

// SimulatedPredictor fabricates plausible predictions for substances that are
// not in the catalog. It is safe for concurrent use.
type SimulatedPredictor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedPredictor uses src for its draws; a nil src seeds from the
// clock.
func NewSimulatedPredictor(src rand.Source) *SimulatedPredictor {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &SimulatedPredictor{rng: rand.New(src)}
}

func (p *SimulatedPredictor) draw() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

func (p *SimulatedPredictor) Predict(ctx context.Context, substance, endpoint string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	d, ok := distributions[endpoint]
	if !ok {
		return Prediction{
			Value:      catalog.Text(unavailableValue),
			Confidence: unavailableConfidence,
			Category:   catalog.RiskLow,
			Source:     SourceSimulated,
		}, nil
	}

	r := p.draw()
	conf := d.confMin + (d.confMax-d.confMin)*r
	if conf >= d.confMax {
		conf = math.Nextafter(d.confMax, d.confMin)
	}
	return Prediction{
		Value:      d.value(r),
		Unit:       d.unit,
		Confidence: conf,
		Category:   bucket(r, d.thresholds),
		Source:     SourceSimulated,
	}, nil
}

func bucket(r float64, thresholds []float64) catalog.RiskCategory {
	for i, th := range thresholds {
		if r > th {
			return riskLevels[i]
		}
	}
	return riskLevels[len(thresholds)]
}
