package provider

import (
	"sync"
	"time"
)

// breakerState is the circuit breaker position
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker is a fail-fast guard around one upstream vendor.
// Closed → Open after `threshold` consecutive failures; while Open all
// calls are rejected without contacting the upstream; after the cool-down
// the breaker moves to Half-Open and admits exactly one trial call.
// Success closes the circuit, failure reopens it and resets the timer.
type CircuitBreaker struct {
	mu sync.Mutex

	state     breakerState
	failures  int
	threshold int
	coolDown  time.Duration
	openedAt  time.Time
	trialUsed bool
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(threshold int, coolDown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:     breakerClosed,
		threshold: threshold,
		coolDown:  coolDown,
	}
}

// Rejecting reports whether the breaker would turn a call away right now,
// without consuming the Half-Open trial slot. Used to fail fast before any
// admission wait.
func (b *CircuitBreaker) Rejecting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerOpen:
		return time.Since(b.openedAt) < b.coolDown
	case breakerHalfOpen:
		return b.trialUsed
	}
	return false
}

// Allow reports whether a call may proceed. In Half-Open only the first
// caller after the cool-down gets through.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if time.Since(b.openedAt) >= b.coolDown {
			b.state = breakerHalfOpen
			b.trialUsed = true
			return true
		}
		return false
	case breakerHalfOpen:
		if b.trialUsed {
			return false
		}
		b.trialUsed = true
		return true
	}
	return false
}

// RecordSuccess resets the breaker to Closed
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = breakerClosed
	b.failures = 0
	b.trialUsed = false
}

// RecordFailure counts a failure; opens the circuit at the threshold, and
// reopens it immediately when a Half-Open trial fails.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = time.Now()
		b.trialUsed = false
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = time.Now()
		b.failures = 0
	}
}

// State returns the current breaker position as a string for logs/metrics
func (b *CircuitBreaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}
