package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seanankenbruck/qsar-chat/internal/observability"
	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig defines circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests   uint32        // Max requests allowed in half-open state
	Interval      time.Duration // Window for counting failures
	Timeout       time.Duration // Duration circuit stays open before trying recovery
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig trips after 5 consecutive failures or a 60%
// failure ratio over at least 3 requests.
var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	MaxRequests: 1,
	Interval:    10 * time.Second,
	Timeout:     30 * time.Second,
	ReadyToTrip: func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && (counts.ConsecutiveFailures >= 5 || failureRatio >= 0.6)
	},
}

// CircuitBreakerPredictor wraps a predictor with circuit breaker protection.
// Missing records and caller cancellation do not count as failures.
type CircuitBreakerPredictor struct {
	predictor Predictor
	breaker   *gobreaker.CircuitBreaker
}

func NewCircuitBreakerPredictor(p Predictor, name string, config CircuitBreakerConfig) *CircuitBreakerPredictor {
	settings := gobreaker.Settings{
		Name:          name,
		MaxRequests:   config.MaxRequests,
		Interval:      config.Interval,
		Timeout:       config.Timeout,
		ReadyToTrip:   config.ReadyToTrip,
		OnStateChange: config.OnStateChange,
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNoRecord) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
	}

	return &CircuitBreakerPredictor{
		predictor: p,
		breaker:   gobreaker.NewCircuitBreaker(settings),
	}
}

func (cb *CircuitBreakerPredictor) Predict(ctx context.Context, substance, endpoint string) (Prediction, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return cb.predictor.Predict(ctx, substance, endpoint)
	})

	if err != nil {
		return Prediction{}, fmt.Errorf("circuit breaker: %w", err)
	}

	return result.(Prediction), nil
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreakerPredictor) State() gobreaker.State {
	return cb.breaker.State()
}

// Counts returns the current failure counts
func (cb *CircuitBreakerPredictor) Counts() gobreaker.Counts {
	return cb.breaker.Counts()
}

// ConsecutiveFailures trips the breaker after n failures in a row.
func ConsecutiveFailures(n uint32) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= n
	}
}

// RecordStateChange exports breaker transitions as a gauge and a log line.
func RecordStateChange(name string, from, to gobreaker.State) {
	observability.SetCircuitBreakerState(name, int(to))
	breakerLogger.Warn(context.Background(), "Circuit breaker state changed", map[string]interface{}{
		"breaker": name,
		"from":    from.String(),
		"to":      to.String(),
	})
}

var breakerLogger = observability.NewLogger("circuit_breaker")
