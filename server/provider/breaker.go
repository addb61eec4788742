package provider

import (
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// newBreaker returns the circuit breaker of a profile, or nil when
// failure_threshold is 0.
func (c *Client) newBreaker(profile string) *gobreaker.CircuitBreaker {
	cbCfg := c.cfg.CircuitBreaker
	if cbCfg.FailureThreshold == 0 {
		return nil
	}

	if c.metrics != nil {
		c.metrics.CircuitBreakerState.WithLabelValues(profile).Set(float64(gobreaker.StateClosed))
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        profile,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbCfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("profile", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if c.metrics != nil {
				c.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
}

// BreakerState returns the state of a profile's breaker. Profiles without
// a breaker always report closed.
func (c *Client) BreakerState(profile string) gobreaker.State {
	pc, ok := c.clients[profile]
	if !ok || pc.breaker == nil {
		return gobreaker.StateClosed
	}
	return pc.breaker.State()
}
