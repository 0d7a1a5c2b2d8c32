package predictor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/seanankenbruck/qsar-chat/internal/catalog"
	"github.com/seanankenbruck/qsar-chat/internal/observability"
)

const similarSubstanceCount = 3

// Result is one explained prediction for a query.
type Result struct {
	EndpointCode        string     `json:"endpoint_code"`
	Endpoint            string     `json:"endpoint"`
	Substance           string     `json:"substance"`
	Prediction          Prediction `json:"prediction"`
	Explanation         string     `json:"explanation_es"`
	RegulatoryRelevance string     `json:"regulatory_relevance_es"`
	SimilarSubstances   []string   `json:"similar_substances"`
	Timestamp           time.Time  `json:"timestamp"`
}

// DelayConfig imitates the latency of a remote model: every lookup waits Min
// plus a random share of Jitter. A zero config disables the wait.
type DelayConfig struct {
	Min    time.Duration
	Jitter time.Duration
}

// DefaultDelay keeps lookups under one second.
var DefaultDelay = DelayConfig{Min: 400 * time.Millisecond, Jitter: 500 * time.Millisecond}

// Service turns a substance and endpoint codes into explained results.
type Service struct {
	catalog   *catalog.Catalog
	predictor Predictor
	delay     DelayConfig
	now       func() time.Time
	logger    *observability.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

func WithDelay(d DelayConfig) Option {
	return func(s *Service) { s.delay = d }
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *observability.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(c *catalog.Catalog, p Predictor, opts ...Option) *Service {
	s := &Service{
		catalog:   c,
		predictor: p,
		delay:     DefaultDelay,
		now:       time.Now,
		logger:    observability.NewLogger("predictor"),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup predicts every endpoint in codes for substance, in the given
// order. Codes missing from the catalog, and endpoints the predictor has no
// record for, are skipped.
func (s *Service) Lookup(ctx context.Context, substance string, codes []string) ([]Result, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	similar := s.catalog.SimilarTo(substance, similarSubstanceCount)
	results := make([]Result, 0, len(codes))

	for _, code := range codes {
		ep, ok := s.catalog.Endpoint(code)
		if !ok {
			s.logger.Debug(ctx, "Skipping unknown endpoint", map[string]interface{}{"endpoint": code})
			continue
		}

		pred, err := s.predictor.Predict(ctx, substance, code)
		if errors.Is(err, ErrNoRecord) {
			continue
		}
		observability.RecordPredictionMetrics(code, string(pred.Source), err)
		if err != nil {
			return nil, fmt.Errorf("predict %s for %s: %w", code, substance, err)
		}

		explanation := Explain(code, pred)
		if pred.Source == SourceSimulated {
			explanation = ExplainSimulated(substance)
		}

		results = append(results, Result{
			EndpointCode:        code,
			Endpoint:            ep.NameES,
			Substance:           substance,
			Prediction:          pred,
			Explanation:         explanation,
			RegulatoryRelevance: RegulatoryRelevance(ep, pred),
			SimilarSubstances:   append([]string(nil), similar...),
			Timestamp:           s.now(),
		})
	}

	return results, nil
}

func (s *Service) wait(ctx context.Context) error {
	d := s.delay.Min
	if s.delay.Jitter > 0 {
		s.rngMu.Lock()
		d += time.Duration(s.rng.Int63n(int64(s.delay.Jitter)))
		s.rngMu.Unlock()
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
