package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewCircuitBreaker("m", 3, time.Minute)

	require.NoError(t, b.Allow())
	b.RecordFailure(false)
	b.RecordFailure(false)
	assert.Equal(t, BreakerClosed, b.State())

	b.RecordFailure(false)
	assert.Equal(t, BreakerOpen, b.State())

	err := b.Allow()
	require.Error(t, err)
	apiErr := Classify(err)
	assert.Equal(t, KindCircuitOpen, apiErr.Kind)
	assert.True(t, apiErr.Retryable())
}

func TestBreakerImmediateOpen(t *testing.T) {
	b := NewCircuitBreaker("m", 5, time.Minute)
	b.RecordFailure(true)
	assert.Equal(t, BreakerOpen, b.State())
	assert.True(t, b.IsOpen())
}

func TestBreakerHalfOpenAdmitsOneTrial(t *testing.T) {
	b := NewCircuitBreaker("m", 1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure(false)
	require.Equal(t, BreakerOpen, b.State())
	require.Error(t, b.Allow())

	now = now.Add(2 * time.Minute)
	require.NoError(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())

	// Second caller while the trial is in flight is rejected.
	require.Error(t, b.Allow())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker("m", 1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure(false)
	now = now.Add(2 * time.Minute)
	require.NoError(t, b.Allow())

	b.RecordFailure(false)
	assert.Equal(t, BreakerOpen, b.State())
	require.Error(t, b.Allow())
}

func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	b := NewCircuitBreaker("m", 1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure(false)
	now = now.Add(2 * time.Minute)
	require.NoError(t, b.Allow())

	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
	require.NoError(t, b.Allow())

	// Failure count was reset; one new failure must not trip a threshold of 2.
	b2 := NewCircuitBreaker("m2", 2, time.Minute)
	b2.RecordFailure(false)
	b2.RecordSuccess()
	b2.RecordFailure(false)
	assert.Equal(t, BreakerClosed, b2.State())
}
