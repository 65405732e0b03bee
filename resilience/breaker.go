// Package resilience implements the retry and circuit-breaker collaborators
// used by the Remote Engine Proxy.
package resilience

import (
	"sync"
	"time"
)

// State is one of the three circuit-breaker states, matching
// resilience.CircuitState's naming in gomind.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Breaker is a per-engine consecutive-failure-count circuit breaker: it
// opens after exactly 5 consecutive non-retryable or exhausted-retry
// failures within a 30-second window, stays open for 30s, then allows a
// single HALF_OPEN probe whose success (count=1) closes it. Grounded on
// orchestration.ServiceCapabilityProvider's simple mutex-guarded failure
// counter (isCircuitOpen/recordSuccess/recordFailure, 5-failure/30s-cooldown)
// rather than gomind's windowed error-rate resilience.CircuitBreaker —
// see DESIGN.md for the rationale.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	window           time.Duration
	openDuration     time.Duration

	state              State
	consecutiveFails   int
	firstFailureInWindow time.Time
	openedAt           time.Time
	halfOpenProbeInFlight bool
}

// NewBreaker builds a Breaker: 5 consecutive failures within a 30s window
// opens it for 30s.
func NewBreaker() *Breaker {
	return &Breaker{
		failureThreshold: 5,
		window:           30 * time.Second,
		openDuration:      30 * time.Second,
		state:            StateClosed,
	}
}

// Allow reports whether a call may proceed. In OPEN state it denies until
// openDuration elapses, at which point exactly one caller is let through as
// the HALF_OPEN probe; concurrent callers during the probe are denied.
func (b *Breaker) Allow() (allowed bool, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true, 0
	case StateOpen:
		elapsed := time.Since(b.openedAt)
		if elapsed < b.openDuration {
			return false, b.openDuration - elapsed
		}
		if b.halfOpenProbeInFlight {
			return false, 0
		}
		b.state = StateHalfOpen
		b.halfOpenProbeInFlight = true
		return true, 0
	case StateHalfOpen:
		// Only the probe request already in flight is allowed through;
		// everyone else is denied until the probe resolves.
		return false, 0
	default:
		return true, 0
	}
}

// RecordSuccess closes the circuit. A single success while HALF_OPEN closes
// it (count=1).
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.consecutiveFails = 0
	b.halfOpenProbeInFlight = false
}

// RecordFailure registers a non-retryable or exhausted-retry failure. After
// failureThreshold consecutive failures within window, the breaker opens.
func (b *Breaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		// The probe failed: reopen immediately.
		b.state = StateOpen
		b.openedAt = now
		b.consecutiveFails = 0
		b.halfOpenProbeInFlight = false
		return
	}

	if b.consecutiveFails == 0 || now.Sub(b.firstFailureInWindow) > b.window {
		b.firstFailureInWindow = now
		b.consecutiveFails = 1
	} else {
		b.consecutiveFails++
	}

	if b.consecutiveFails >= b.failureThreshold {
		b.state = StateOpen
		b.openedAt = now
		b.consecutiveFails = 0
	}
}

// CurrentState returns the current state, used by GET /ready to report
// whether every remote engine proxy is CLOSED or HALF_OPEN.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
