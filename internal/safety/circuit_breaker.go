package safety

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of the circuit breaker state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for a circuit breaker.
// FailureThreshold consecutive failures open the breaker; after Cooldown one trial call is
// let through, and SuccessThreshold consecutive successes close it again.
type CircuitBreakerConfig struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	Cooldown         time.Duration
}

// ErrOpen is returned by Call while the breaker rejects calls
type ErrOpen struct {
	Name        string
	NextAttempt time.Time
}

func (e *ErrOpen) Error() string {
	return fmt.Sprintf("circuit breaker %s is open until %s", e.Name, e.NextAttempt.Format(time.RFC3339))
}

// CircuitBreaker implements the circuit breaker pattern for preventing cascading failures
type CircuitBreaker struct {
	config        CircuitBreakerConfig
	state         CircuitBreakerState
	failures      uint32
	successes     uint32
	nextAttempt   time.Time
	mutex         sync.Mutex
	name          string
	now           func() time.Time
	onStateChange func(name string, from, to CircuitBreakerState)
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 3
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	if config.Cooldown == 0 {
		config.Cooldown = 5 * time.Minute
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		name:   name,
		now:    time.Now,
	}
}

// Call executes fn with circuit breaker protection
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.acquire(); err != nil {
		return err
	}

	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

// acquire admits a call, moving an open breaker to half-open once its cooldown has passed
func (cb *CircuitBreaker) acquire() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen {
		if cb.now().Before(cb.nextAttempt) {
			return &ErrOpen{Name: cb.name, NextAttempt: cb.nextAttempt}
		}
		cb.changeState(StateHalfOpen)
		cb.successes = 0
	}
	return nil
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.toClosed()
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.toOpen()
		}
	case StateHalfOpen:
		cb.toOpen()
	}
}

func (cb *CircuitBreaker) toClosed() {
	cb.changeState(StateClosed)
	cb.failures = 0
	cb.successes = 0
}

func (cb *CircuitBreaker) toOpen() {
	cb.changeState(StateOpen)
	cb.nextAttempt = cb.now().Add(cb.config.Cooldown)
	cb.successes = 0
}

// changeState must be called with the mutex held
func (cb *CircuitBreaker) changeState(newState CircuitBreakerState) {
	oldState := cb.state
	cb.state = newState

	if cb.onStateChange != nil && oldState != newState {
		// Call callback without holding the mutex to avoid deadlock
		go cb.onStateChange(cb.name, oldState, newState)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// CircuitBreakerManager keeps one breaker per name, created on first use
type CircuitBreakerManager struct {
	breakers map[string]*CircuitBreaker
	config   CircuitBreakerConfig
	now      func() time.Time
	onChange func(name string, from, to CircuitBreakerState)
	mutex    sync.RWMutex
}

// NewCircuitBreakerManager creates a manager whose breakers share config
func NewCircuitBreakerManager(config CircuitBreakerConfig) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
		now:      time.Now,
	}
}

// OnStateChange registers a callback for every breaker created afterwards
func (cbm *CircuitBreakerManager) OnStateChange(fn func(name string, from, to CircuitBreakerState)) {
	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()
	cbm.onChange = fn
}

// Get returns the breaker for name, creating it if needed
func (cbm *CircuitBreakerManager) Get(name string) *CircuitBreaker {
	cbm.mutex.RLock()
	if cb, exists := cbm.breakers[name]; exists {
		cbm.mutex.RUnlock()
		return cb
	}
	cbm.mutex.RUnlock()

	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()

	// Double-check after acquiring write lock
	if cb, exists := cbm.breakers[name]; exists {
		return cb
	}

	cb := NewCircuitBreaker(name, cbm.config)
	cb.now = cbm.now
	cb.onStateChange = cbm.onChange
	cbm.breakers[name] = cb
	return cb
}

// GetOpenCircuits returns the sorted names of open breakers
func (cbm *CircuitBreakerManager) GetOpenCircuits() []string {
	cbm.mutex.RLock()
	defer cbm.mutex.RUnlock()

	var open []string
	for name, cb := range cbm.breakers {
		if cb.GetState() == StateOpen {
			open = append(open, name)
		}
	}
	sort.Strings(open)
	return open
}
