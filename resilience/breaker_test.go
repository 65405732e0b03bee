package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterExactlyFiveConsecutiveFailures(t *testing.T) {
	b := NewBreaker()
	now := time.Now()

	for i := 0; i < 4; i++ {
		allowed, _ := b.Allow()
		assert.True(t, allowed, "breaker must stay closed before the 5th failure")
		b.RecordFailure(now)
		assert.Equal(t, StateClosed, b.CurrentState())
	}

	allowed, _ := b.Allow()
	assert.True(t, allowed)
	b.RecordFailure(now)
	assert.Equal(t, StateOpen, b.CurrentState(), "the 5th consecutive failure must open the breaker")

	allowed, retryAfter := b.Allow()
	assert.False(t, allowed, "an open breaker must deny calls before the cooldown elapses")
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestBreakerResetsConsecutiveCountOnSuccess(t *testing.T) {
	b := NewBreaker()
	now := time.Now()

	for i := 0; i < 4; i++ {
		b.RecordFailure(now)
	}
	b.RecordSuccess()

	for i := 0; i < 4; i++ {
		b.RecordFailure(now)
	}
	assert.Equal(t, StateClosed, b.CurrentState(), "a success must reset the consecutive-failure count")
}

func TestBreakerFailuresOutsideWindowDoNotAccumulate(t *testing.T) {
	b := NewBreaker()
	start := time.Now()

	for i := 0; i < 4; i++ {
		b.RecordFailure(start)
	}

	// A failure after the 30s window resets the consecutive count rather
	// than reaching the threshold.
	b.RecordFailure(start.Add(31 * time.Second))
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestBreakerHalfOpenProbeSuccessCloses(t *testing.T) {
	b := NewBreaker()
	opened := time.Now()
	for i := 0; i < 5; i++ {
		b.RecordFailure(opened)
	}
	assert.Equal(t, StateOpen, b.CurrentState())

	// Simulate the cooldown elapsing by moving the unexported openedAt far
	// enough into the past; Allow() then sees the elapsed cooldown through
	// its own time.Since.
	b.openedAt = opened.Add(-31 * time.Second)

	allowed, _ := b.Allow()
	assert.True(t, allowed, "exactly one probe must be let through once the cooldown elapses")
	assert.Equal(t, StateHalfOpen, b.CurrentState())

	concurrentAllowed, _ := b.Allow()
	assert.False(t, concurrentAllowed, "a concurrent caller during the probe must be denied")

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.CurrentState(), "a single successful probe must close the breaker")
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b := NewBreaker()
	opened := time.Now()
	for i := 0; i < 5; i++ {
		b.RecordFailure(opened)
	}
	b.openedAt = opened.Add(-31 * time.Second)

	allowed, _ := b.Allow()
	assert.True(t, allowed)
	assert.Equal(t, StateHalfOpen, b.CurrentState())

	b.RecordFailure(time.Now())
	assert.Equal(t, StateOpen, b.CurrentState(), "a failed probe must reopen the breaker immediately")
}
