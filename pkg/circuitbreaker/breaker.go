// Package circuitbreaker stops accepting trades for a chain after repeated submission failures.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/metrics"
)

// CircuitBreaker trips after threshold failures within window and closes again after
// resetTimeout or a manual Reset.
type CircuitBreaker struct {
	chain         string
	enabled       bool
	failureCount  int
	failureWindow time.Duration
	failThreshold int
	resetTimeout  time.Duration
	lastFailure   time.Time
	tripped       bool
	tripTime      time.Time
	logger        logger.Logger
	now           func() time.Time
	mu            sync.Mutex
}

// NewCircuitBreaker creates a closed circuit breaker for chain
func NewCircuitBreaker(chain string, enabled bool, threshold int, window time.Duration, resetTimeout time.Duration, log logger.Logger) *CircuitBreaker {
	metrics.CircuitOpen.WithLabelValues(chain).Set(0)
	return &CircuitBreaker{
		chain:         chain,
		enabled:       enabled,
		failThreshold: threshold,
		failureWindow: window,
		resetTimeout:  resetTimeout,
		logger:        log,
		now:           time.Now,
	}
}

// Chain returns the label of the guarded chain
func (cb *CircuitBreaker) Chain() string {
	return cb.chain
}

// RecordFailure records a failure and trips the circuit if the threshold is reached.
// It returns true when the circuit is open afterwards.
func (cb *CircuitBreaker) RecordFailure() bool {
	if !cb.enabled {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()

	if cb.tripped {
		if now.Sub(cb.tripTime) <= cb.resetTimeout {
			return true
		}
		cb.logger.InfoWithChain(cb.chain, "Circuit breaker: attempting to reset after timeout")
		cb.close()
	}

	if now.Sub(cb.lastFailure) > cb.failureWindow {
		cb.failureCount = 0
	}

	cb.failureCount++
	cb.lastFailure = now

	if cb.failureCount >= cb.failThreshold {
		cb.tripped = true
		cb.tripTime = now
		metrics.CircuitOpen.WithLabelValues(cb.chain).Set(1)
		cb.logger.ErrorWithChain(cb.chain, "Circuit breaker tripped: %d failures within %s", cb.failureCount, cb.failureWindow)
		return true
	}

	return false
}

// RecordSuccess clears the failure streak
func (cb *CircuitBreaker) RecordSuccess() {
	if !cb.enabled {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.tripped {
		cb.failureCount = 0
	}
}

// IsOpen returns true if the circuit is open (tripped)
func (cb *CircuitBreaker) IsOpen() bool {
	if !cb.enabled {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	// If tripped but reset timeout has passed, try again
	if cb.tripped && cb.now().Sub(cb.tripTime) > cb.resetTimeout {
		cb.logger.InfoWithChain(cb.chain, "Circuit breaker: reset timeout elapsed, closing")
		cb.close()
		return false
	}

	return cb.tripped
}

// Reset manually closes the circuit breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.close()
	cb.logger.NoticeWithChain(cb.chain, "Circuit breaker manually reset")
}

func (cb *CircuitBreaker) close() {
	cb.tripped = false
	cb.failureCount = 0
	metrics.CircuitOpen.WithLabelValues(cb.chain).Set(0)
}

// GetState returns the current failure count and the thresholds
func (cb *CircuitBreaker) GetState() (failureCount int, lastFailure time.Time, failureWindow time.Duration, failThreshold int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount, cb.lastFailure, cb.failureWindow, cb.failThreshold
}

// GetTripTime returns the time when the circuit was tripped
func (cb *CircuitBreaker) GetTripTime() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.tripTime
}

// IsEnabled returns true if the circuit breaker is enabled
func (cb *CircuitBreaker) IsEnabled() bool {
	return cb.enabled
}
