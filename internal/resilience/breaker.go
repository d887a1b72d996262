package resilience

import (
	"errors"
	"sync"
	"time"
)

const (
	errorThreshold      = 0.5
	minRequests         = 10
	openTimeout         = 30 * time.Second
	halfOpenMaxRequests = 3
)

// BreakerState is the circuit breaker's current position.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

// ErrCircuitOpen is returned while the breaker refuses calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var errHalfOpenBusy = errors.New("too many probe requests in half-open")

// CircuitBreaker trips open when the recent error rate crosses the threshold
// and probes with a few requests after a cool-down before closing again.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           BreakerState
	failures        int
	successes       int
	requests        int
	lastFailureTime time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{state: StateClosed}
}

// Call runs fn under the breaker's admission policy.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.lastFailureTime) >= openTimeout {
			cb.state = StateHalfOpen
			cb.resetLocked()
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen && cb.requests >= halfOpenMaxRequests {
		cb.mu.Unlock()
		return errHalfOpenBusy
	}
	cb.mu.Unlock()

	callErr := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++
	if callErr != nil {
		cb.failures++
		if cb.state == StateHalfOpen {
			cb.tripLocked()
		} else if cb.requests >= minRequests && float64(cb.failures)/float64(cb.requests) >= errorThreshold {
			cb.tripLocked()
		}
		return callErr
	}

	cb.successes++
	if cb.state == StateHalfOpen && cb.successes >= halfOpenMaxRequests {
		cb.state = StateClosed
		cb.resetLocked()
	}

	return nil
}

// State reports the breaker's current position.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) resetLocked() {
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
}

func (cb *CircuitBreaker) tripLocked() {
	cb.state = StateOpen
	cb.lastFailureTime = time.Now()
	cb.resetLocked()
}
