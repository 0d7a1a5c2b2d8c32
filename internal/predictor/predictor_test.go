package predictor

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanankenbruck/qsar-chat/internal/catalog"
)

var allEndpoints = []string{
	"acute_oral", "acute_dermal", "acute_inhalation", "skin_irritation",
	"eye_irritation", "skin_sensitization", "bioaccumulation", "biodegradation",
}

// fixedSource always yields the same Float64 draw.
type fixedSource struct{ r float64 }

func (s fixedSource) Int63() int64 { return int64(s.r * (1 << 63)) }
func (s fixedSource) Seed(int64)   {}

func TestTablePredictor(t *testing.T) {
	p := NewTablePredictor(catalog.MustDefault())
	ctx := context.Background()

	pred, err := p.Predict(ctx, "benceno", "skin_irritation")
	require.NoError(t, err)
	assert.Equal(t, "Irritante", pred.Value.String())
	assert.Equal(t, 0.82, pred.Confidence)
	assert.Equal(t, catalog.RiskModerate, pred.Category)
	assert.Equal(t, SourceTable, pred.Source)

	pred, err = p.Predict(ctx, "Tolueno", "acute_oral")
	require.NoError(t, err)
	assert.True(t, pred.Value.IsNumeric())
	assert.Equal(t, 636.0, pred.Value.Float())
	assert.Equal(t, "mg/kg", pred.Unit)

	_, err = p.Predict(ctx, "etanol", "acute_inhalation")
	assert.ErrorIs(t, err, ErrNoRecord)

	_, err = p.Predict(ctx, "xyz123", "acute_oral")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestTablePredictor_Cancelled(t *testing.T) {
	p := NewTablePredictor(catalog.MustDefault())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Predict(ctx, "benceno", "acute_oral")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedPredictor_Ranges(t *testing.T) {
	p := NewSimulatedPredictor(rand.NewSource(42))
	ctx := context.Background()

	for _, code := range allEndpoints {
		min, max, ok := ConfidenceRange(code)
		require.True(t, ok, code)

		for i := 0; i < 500; i++ {
			pred, err := p.Predict(ctx, "xyz123", code)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, pred.Confidence, min, code)
			assert.Less(t, pred.Confidence, max, code)
			assert.True(t, pred.Category.Valid(), code)
			assert.Equal(t, SourceSimulated, pred.Source)
		}
	}
}

func TestSimulatedPredictor_NumericRanges(t *testing.T) {
	p := NewSimulatedPredictor(rand.NewSource(7))
	ctx := context.Background()

	bounds := map[string][2]float64{
		"acute_oral":       {300, 5300},
		"acute_dermal":     {2000, 20000},
		"acute_inhalation": {1000, 61000},
		"bioaccumulation":  {1, 1001},
	}
	for code, b := range bounds {
		for i := 0; i < 200; i++ {
			pred, err := p.Predict(ctx, "xyz123", code)
			require.NoError(t, err)
			require.True(t, pred.Value.IsNumeric(), code)
			assert.GreaterOrEqual(t, pred.Value.Float(), b[0], code)
			assert.LessOrEqual(t, pred.Value.Float(), b[1], code)
		}
	}
}

func TestSimulatedPredictor_Buckets(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		r        float64
		endpoint string
		value    string
		category catalog.RiskCategory
	}{
		{"oral high draw", 0.9, "acute_oral", "4800", catalog.RiskLow},
		{"oral middle draw", 0.5, "acute_oral", "2800", catalog.RiskModerate},
		{"oral low draw", 0.1, "acute_oral", "800", catalog.RiskHigh},
		{"skin mild", 0.9, "skin_irritation", "No irritante", catalog.RiskLow},
		{"skin irritant", 0.6, "skin_irritation", "Ligeramente irritante", catalog.RiskModerate},
		{"skin severe", 0.3, "skin_irritation", "Irritante", catalog.RiskHigh},
		{"skin corrosive", 0.1, "skin_irritation", "Corrosivo", catalog.RiskVeryHigh},
		{"eye severe", 0.0, "eye_irritation", "Irritante severo", catalog.RiskHigh},
		{"sensitizer", 0.3, "skin_sensitization", "Sensibilizante", catalog.RiskHigh},
		{"biodegradable", 0.8, "biodegradation", "Fácilmente biodegradable", catalog.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewSimulatedPredictor(fixedSource{r: tt.r})
			pred, err := p.Predict(ctx, "xyz123", tt.endpoint)
			require.NoError(t, err)
			assert.Equal(t, tt.value, pred.Value.String())
			assert.Equal(t, tt.category, pred.Category)
		})
	}
}

func TestSimulatedPredictor_UnknownEndpoint(t *testing.T) {
	p := NewSimulatedPredictor(rand.NewSource(1))

	pred, err := p.Predict(context.Background(), "xyz123", "water_solubility")
	require.NoError(t, err)
	assert.Equal(t, "No disponible", pred.Value.String())
	assert.Equal(t, 0.30, pred.Confidence)
	assert.Equal(t, catalog.RiskLow, pred.Category)
}

func TestSimulatedPredictor_Seeded(t *testing.T) {
	a := NewSimulatedPredictor(rand.NewSource(99))
	b := NewSimulatedPredictor(rand.NewSource(99))
	ctx := context.Background()

	for _, code := range allEndpoints {
		pa, err := a.Predict(ctx, "xyz123", code)
		require.NoError(t, err)
		pb, err := b.Predict(ctx, "xyz123", code)
		require.NoError(t, err)
		assert.Equal(t, pa, pb)
	}
}

func TestSimulatedPredictor_Concurrent(t *testing.T) {
	p := NewSimulatedPredictor(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := p.Predict(context.Background(), "xyz123", "acute_oral")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

func TestFallbackPredictor(t *testing.T) {
	c := catalog.MustDefault()
	p := NewDefault(c, NewSimulatedPredictor(rand.NewSource(3)))
	ctx := context.Background()

	pred, err := p.Predict(ctx, "formaldehído", "acute_oral")
	require.NoError(t, err)
	assert.Equal(t, SourceTable, pred.Source)
	assert.Equal(t, "100", pred.Value.String())

	pred, err = p.Predict(ctx, "etanol", "acute_inhalation")
	require.NoError(t, err)
	assert.Equal(t, SourceSimulated, pred.Source)

	pred, err = p.Predict(ctx, "xyz123", "acute_oral")
	require.NoError(t, err)
	assert.Equal(t, SourceSimulated, pred.Source)
}

type failingPredictor struct{ err error }

func (f failingPredictor) Predict(context.Context, string, string) (Prediction, error) {
	return Prediction{}, f.err
}

func TestFallbackPredictor_PropagatesOtherErrors(t *testing.T) {
	boom := errors.New("backend down")
	p := &FallbackPredictor{Primary: failingPredictor{err: boom}, Fallback: NewSimulatedPredictor(nil)}

	_, err := p.Predict(context.Background(), "benceno", "acute_oral")
	assert.ErrorIs(t, err, boom)
}
