package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	cb := newCircuitBreaker()

	for i := 0; i < 4; i++ {
		assert.False(t, cb.RecordFailure())
		assert.False(t, cb.IsOpen())
	}
	assert.True(t, cb.RecordFailure())
	assert.True(t, cb.IsOpen())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := newCircuitBreaker()

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	cb.RecordSuccess()
	assert.False(t, cb.RecordFailure())
	assert.False(t, cb.IsOpen())
}

func TestCircuitClosesAfterConsecutiveSuccesses(t *testing.T) {
	cb := newCircuitBreaker()
	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	assert.True(t, cb.IsOpen())

	assert.False(t, cb.RecordSuccess())
	assert.False(t, cb.RecordSuccess())
	assert.True(t, cb.RecordSuccess())
	assert.False(t, cb.IsOpen())
}

func TestFailureWhileOpenResetsSuccessStreak(t *testing.T) {
	cb := newCircuitBreaker()
	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}

	cb.RecordSuccess()
	cb.RecordSuccess()
	assert.True(t, cb.RecordFailure())
	assert.False(t, cb.RecordSuccess())
	assert.False(t, cb.RecordSuccess())
	assert.True(t, cb.RecordSuccess())
	assert.False(t, cb.IsOpen())
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "ratelimit:auth:203.0.113.7", Key(ClassAuth, "203.0.113.7"))
}
