package circuitbreaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calls to a dependency after repeated failures and lets a single
// probe through once the cooldown has passed. Calls arriving while the probe is in
// flight are rejected with ErrCircuitOpen.
type CircuitBreaker struct {
	mu                  sync.Mutex
	name                string
	state               State
	failureCount        int
	lastStateChangeTime time.Time
	probing             bool

	maxFailures    int
	cooldownPeriod time.Duration
	isFailure      func(error) bool
	now            func() time.Time
}

// Config holds circuit breaker configuration
type Config struct {
	Name           string        // Used in state change logs
	MaxFailures    int           // Number of failures before opening circuit
	CooldownPeriod time.Duration // Time to wait before attempting half-open

	// IsFailure decides which errors count against the circuit. Errors it rejects
	// prove the dependency answered and count as successes. Nil counts every error.
	IsFailure func(error) bool
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config Config) *CircuitBreaker {
	if config.MaxFailures == 0 {
		config.MaxFailures = 3
	}
	if config.CooldownPeriod == 0 {
		config.CooldownPeriod = 30 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		name:           config.Name,
		state:          StateClosed,
		maxFailures:    config.MaxFailures,
		cooldownPeriod: config.CooldownPeriod,
		isFailure:      config.IsFailure,
		now:            time.Now,
	}
}

// Execute runs the given function if the circuit is closed or half-open
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := Run(cb, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Run is Execute for functions that return a value.
func Run[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	if !cb.canAttempt() {
		return zero, ErrCircuitOpen
	}

	// A panicking call counts as a failure so a half-open probe is always released.
	finished := false
	defer func() {
		if !finished {
			cb.recordFailure()
		}
	}()

	result, err := fn()
	finished = true
	if err != nil && cb.isFailure(err) {
		cb.recordFailure()
		return zero, err
	}

	cb.recordSuccess()
	return result, err
}

// canAttempt checks if a request can be attempted
func (cb *CircuitBreaker) canAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	case StateOpen:
		if cb.now().Sub(cb.lastStateChangeTime) >= cb.cooldownPeriod {
			cb.setState(StateHalfOpen)
			cb.probing = true
			return true
		}
		return false
	default:
		return false
	}
}

// recordFailure records a failure and potentially opens the circuit
func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++

	switch cb.state {
	case StateClosed:
		if cb.failureCount >= cb.maxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		// Single failure in half-open state reopens circuit
		cb.setState(StateOpen)
	}
}

// recordSuccess records a success and closes a half-open circuit
func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(state State) {
	if cb.state == state {
		return
	}
	slog.Warn("Circuit breaker state changed",
		"breaker", cb.name,
		"from", cb.state.String(),
		"to", state.String(),
		"failures", cb.failureCount)
	cb.state = state
	cb.lastStateChangeTime = cb.now()
	cb.probing = false
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStateValue returns numeric value for metrics (0=closed, 1=open, 2=half-open)
func (cb *CircuitBreaker) GetStateValue() int64 {
	return int64(cb.GetState())
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateClosed)
	cb.failureCount = 0
}
