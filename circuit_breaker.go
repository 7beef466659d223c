package monoprice

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards the exchanges of a client.
// *gobreaker.CircuitBreaker[string] implements it.
type CircuitBreaker interface {
	Execute(req func() (string, error)) (string, error)
	State() gobreaker.State
}

var _ CircuitBreaker = (*gobreaker.CircuitBreaker[string])(nil)

// NewCircuitBreakerConfig returns a function that creates circuit breakers for ports.
// This is a helper for common use cases.
//
// The breaker opens after 3 requests with a failure ratio of 60% or more.
// Timeouts count as failures.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) CircuitBreaker {
	return func(port string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        port,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[string](settings)
	}
}

// CircuitBreakerState returns the state of the client's circuit breaker.
// A client without a breaker always reports gobreaker.StateClosed.
func (c *Client) CircuitBreakerState() gobreaker.State {
	if c.circuitBreaker == nil {
		return gobreaker.StateClosed
	}
	return c.circuitBreaker.State()
}
