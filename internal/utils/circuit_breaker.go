package utils

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of the circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
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

// MarshalText renders the state by name in JSON output.
func (s CircuitBreakerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreakerConfig holds configuration for circuit breaker
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int
	ResetTimeout     time.Duration
	CallTimeout      time.Duration
}

// CircuitBreaker guards calls to an optional dependency. After FailureThreshold
// consecutive failures it opens and rejects calls until ResetTimeout elapses,
// then lets a single trial call through.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitBreakerState
	failures    int
	openedAt    time.Time
	trialActive bool

	totalRequests  int64
	totalFailures  int64
	totalRejected  int64
	totalSuccesses int64
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Call executes fn with circuit breaker protection. A positive CallTimeout
// bounds the context passed to fn.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	callCtx := ctx
	if cb.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cb.config.CallTimeout)
		defer cancel()
	}

	err := fn(callCtx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.ResetTimeout {
			cb.totalRejected++
			return false
		}
		cb.state = StateHalfOpen
		cb.trialActive = true
		return true
	case StateHalfOpen:
		if cb.trialActive {
			cb.totalRejected++
			return false
		}
		cb.trialActive = true
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++
	cb.trialActive = false

	if err == nil {
		cb.totalSuccesses++
		cb.failures = 0
		if cb.state != StateClosed {
			Info("circuit breaker closed", "name", cb.config.Name)
		}
		cb.state = StateClosed
		return
	}

	cb.totalFailures++
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		if cb.state != StateOpen {
			Warn("circuit breaker opened", "name", cb.config.Name, "failures", cb.failures, "error", err.Error())
		}
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}

// GetState returns current circuit breaker state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetMetrics returns current circuit breaker metrics
func (cb *CircuitBreaker) GetMetrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerMetrics{
		State:           cb.state,
		TotalRequests:   cb.totalRequests,
		TotalFailures:   cb.totalFailures,
		TotalSuccesses:  cb.totalSuccesses,
		TotalRejected:   cb.totalRejected,
		CurrentFailures: cb.failures,
	}
}

// CircuitBreakerMetrics holds circuit breaker performance metrics
type CircuitBreakerMetrics struct {
	State           CircuitBreakerState `json:"state"`
	TotalRequests   int64               `json:"total_requests"`
	TotalFailures   int64               `json:"total_failures"`
	TotalSuccesses  int64               `json:"total_successes"`
	TotalRejected   int64               `json:"total_rejected"`
	CurrentFailures int                 `json:"current_failures"`
}

// CircuitBreakerRegistry manages multiple circuit breakers
type CircuitBreakerRegistry struct {
	breakers map[string]*CircuitBreaker
	mu       sync.RWMutex
}

// NewCircuitBreakerRegistry creates a new registry
func NewCircuitBreakerRegistry() *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// GetOrCreate gets an existing circuit breaker or creates a new one
func (r *CircuitBreakerRegistry) GetOrCreate(config CircuitBreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if breaker, exists := r.breakers[config.Name]; exists {
		return breaker
	}

	breaker := NewCircuitBreaker(config)
	r.breakers[config.Name] = breaker
	return breaker
}

// GetAllMetrics returns metrics for all circuit breakers
func (r *CircuitBreakerRegistry) GetAllMetrics() map[string]CircuitBreakerMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics := make(map[string]CircuitBreakerMetrics, len(r.breakers))
	for name, breaker := range r.breakers {
		metrics[name] = breaker.GetMetrics()
	}
	return metrics
}

var globalRegistry = NewCircuitBreakerRegistry()

// GetCircuitBreaker gets or creates a circuit breaker from the global registry
func GetCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return globalRegistry.GetOrCreate(config)
}

// GetCircuitBreakerMetrics returns metrics from the global registry
func GetCircuitBreakerMetrics() map[string]CircuitBreakerMetrics {
	return globalRegistry.GetAllMetrics()
}
