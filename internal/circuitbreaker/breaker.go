package circuitbreaker

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	failureThreshold = 5
	openTimeout      = 30 * time.Second
	countInterval    = time.Minute
)

// New returns a breaker that opens after consecutive failures of a remote
// dependency. Errors matching one of expected are answers from the remote
// (not found, rejected) and do not count as failures.
func New[T any](name string, log zerolog.Logger, expected ...error) *gobreaker.CircuitBreaker[T] {
	log = log.With().Str("component", "circuitbreaker").Str("breaker", name).Logger()

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    countInterval,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			for _, e := range expected {
				if errors.Is(err, e) {
					return true
				}
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// IsOpen reports whether err was returned without calling the dependency.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
