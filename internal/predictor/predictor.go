// Package predictor produces toxicity predictions for a substance and an
// endpoint, and assembles them into explained results.
package predictor

import (
	"context"
	"errors"
	"fmt"

	"github.com/seanankenbruck/qsar-chat/internal/catalog"
)

// ErrNoRecord is returned when a predictor holds no value for the requested
// substance and endpoint.
var ErrNoRecord = errors.New("no prediction record")

// Source tells where a prediction came from.
type Source string

const (
	SourceTable     Source = "table"
	SourceSimulated Source = "simulated"
)

// Prediction is the value predicted for one endpoint.
type Prediction struct {
	Value      catalog.Value        `json:"value"`
	Unit       string               `json:"unit"`
	Confidence float64              `json:"confidence"`
	Category   catalog.RiskCategory `json:"category"`
	Source     Source               `json:"source,omitempty"`
}

// Predictor predicts one endpoint for one substance.
type Predictor interface {
	Predict(ctx context.Context, substance, endpoint string) (Prediction, error)
}

// TablePredictor answers from the catalog substance table.
type TablePredictor struct {
	catalog *catalog.Catalog
}

func NewTablePredictor(c *catalog.Catalog) *TablePredictor {
	return &TablePredictor{catalog: c}
}

func (p *TablePredictor) Predict(ctx context.Context, substance, endpoint string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	rec, ok := p.catalog.Record(substance, endpoint)
	if !ok {
		return Prediction{}, fmt.Errorf("%w: %s/%s", ErrNoRecord, substance, endpoint)
	}
	return Prediction{
		Value:      rec.Value,
		Unit:       rec.Unit,
		Confidence: rec.Confidence,
		Category:   rec.Category,
		Source:     SourceTable,
	}, nil
}

// FallbackPredictor asks Primary first and Fallback when Primary has no
// record. Other errors from Primary are returned as is.
type FallbackPredictor struct {
	Primary  Predictor
	Fallback Predictor
}

func (p *FallbackPredictor) Predict(ctx context.Context, substance, endpoint string) (Prediction, error) {
	pred, err := p.Primary.Predict(ctx, substance, endpoint)
	if err == nil {
		return pred, nil
	}
	if !errors.Is(err, ErrNoRecord) {
		return Prediction{}, err
	}
	return p.Fallback.Predict(ctx, substance, endpoint)
}

// NewDefault returns the table predictor backed by the simulator.
func NewDefault(c *catalog.Catalog, sim *SimulatedPredictor) Predictor {
	return &FallbackPredictor{Primary: NewTablePredictor(c), Fallback: sim}
}
