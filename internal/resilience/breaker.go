package resilience

import (
	"sync"
	"time"

	"github.com/MimeLyc/novel-chapter-translator/pkg/log"
)

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// CircuitBreaker is a three-state gate in front of one backend. CLOSED passes
// calls and counts consecutive failures; OPEN rejects everything until the
// reset timeout elapses; HALF_OPEN lets exactly one trial call through.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	resetTimeout     time.Duration

	state           BreakerState
	failureCount    int
	lastFailureTime time.Time
	trialInFlight   bool

	now func() time.Time
}

func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = time.Minute
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// Allow gates one call. It returns a retryable CIRCUIT_OPEN error while the
// breaker is open; after the reset timeout it transitions to HALF_OPEN and
// admits a single trial call, rejecting others until that trial resolves.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.lastFailureTime) < b.resetTimeout {
			return NewError(KindCircuitOpen, "circuit open for "+b.name)
		}
		b.state = BreakerHalfOpen
		b.trialInFlight = true
		log.Info("circuit breaker %s: OPEN -> HALF_OPEN", b.name)
		return nil
	case BreakerHalfOpen:
		if b.trialInFlight {
			return NewError(KindCircuitOpen, "circuit half-open, trial in flight for "+b.name)
		}
		b.trialInFlight = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess resets the breaker after a successful call.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerClosed {
		log.Info("circuit breaker %s: %s -> CLOSED", b.name, b.state)
	}
	b.state = BreakerClosed
	b.failureCount = 0
	b.trialInFlight = false
}

// RecordFailure counts one failure; immediate forces the breaker open without
// waiting for the threshold (fatal-class errors). A HALF_OPEN trial failure
// reopens at once.
func (b *CircuitBreaker) RecordFailure(immediate bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()
	b.trialInFlight = false

	if b.state == BreakerHalfOpen || immediate || b.failureCount >= b.failureThreshold {
		if b.state != BreakerOpen {
			log.Warn("circuit breaker %s: %s -> OPEN after %d failures", b.name, b.state, b.failureCount)
		}
		b.state = BreakerOpen
	}
}

// IsOpen reports whether calls are currently rejected outright. It does not
// trigger the OPEN -> HALF_OPEN transition; only Allow does.
func (b *CircuitBreaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == BreakerOpen && b.now().Sub(b.lastFailureTime) < b.resetTimeout
}

// State returns the current state without side effects.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
