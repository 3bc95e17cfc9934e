// Package breaker builds the circuit breakers guarding outbound API clients.
package breaker

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/logging"
	"github.com/Maldo155/gta-mlo-map-sub001/internal/metrics"
)

// ErrRejected is returned when the breaker refuses a call.
var ErrRejected = errors.New("circuit breaker open")

// New returns a breaker that opens after five consecutive failures and probes
// again after thirty seconds. isSuccessful decides which errors are the
// remote side's fault; nil counts every error as a failure.
func New[T any](name string, isSuccessful func(error) bool) *gobreaker.CircuitBreaker[T] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		IsSuccessful: isSuccessful,
	})
}

// Translate folds the breaker's own rejection errors into ErrRejected.
func Translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrRejected
	}
	return err
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
