package analysis

import (
	"sync"
	"time"
)

// CircuitState is the state of a CircuitBreaker
type CircuitState int

const (
	// CircuitClosed lets every call through
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cooldown has passed
	CircuitOpen
	// CircuitHalfOpen lets calls through to test for recovery
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a CircuitBreaker
type BreakerConfig struct {
	MaxFailures       int           // failures before the circuit opens
	Cooldown          time.Duration // open time before half-open
	RecoveryThreshold int           // consecutive successes that close it again
}

// DefaultBreakerConfig returns the defaults used for the browser provider
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:       3,
		Cooldown:          30 * time.Second,
		RecoveryThreshold: 2,
	}
}

// CircuitBreaker stops hammering a flaky dependency such as a crashed
// headless browser.
type CircuitBreaker struct {
	mu            sync.RWMutex
	cfg           BreakerConfig
	failures      int
	consecutiveOK int
	lastFailure   time.Time
	now           func() time.Time
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}
	if cfg.RecoveryThreshold <= 0 {
		cfg.RecoveryThreshold = 1
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// State returns the current state
func (b *CircuitBreaker) State() CircuitState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.failures < b.cfg.MaxFailures {
		return CircuitClosed
	}
	if b.now().Sub(b.lastFailure) >= b.cfg.Cooldown {
		return CircuitHalfOpen
	}
	return CircuitOpen
}

// Allow reports whether a call may proceed
func (b *CircuitBreaker) Allow() bool {
	return b.State() != CircuitOpen
}

// RecordFailure counts a failed call
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	b.consecutiveOK = 0
}

// RecordSuccess counts a successful call; enough of them close an open circuit
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.cfg.MaxFailures {
		b.failures = 0
		return
	}

	b.consecutiveOK++
	if b.consecutiveOK >= b.cfg.RecoveryThreshold {
		b.failures = 0
		b.consecutiveOK = 0
	}
}

// RetryAfter returns how long the circuit stays open, or 0
func (b *CircuitBreaker) RetryAfter() time.Duration {
	if b.State() != CircuitOpen {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg.Cooldown - b.now().Sub(b.lastFailure)
}
