package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket with a FIFO wait queue. The fast path grants
// a token directly when nobody is queued; otherwise callers line up and a
// single drain goroutine hands out tokens in arrival order, so the shared
// counter is never raced over.
type RateLimiter struct {
	mu sync.Mutex

	capacity     float64
	refillPerSec float64

	tokens     float64
	lastRefill time.Time

	queue    []chan struct{}
	draining bool
}

// NewRateLimiter builds a limiter granting capacity calls per window.
func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	if capacity <= 0 {
		capacity = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		capacity:     float64(capacity),
		refillPerSec: float64(capacity) / window.Seconds(),
		tokens:       float64(capacity),
		lastRefill:   time.Now(),
	}
}

// Acquire blocks until a token is granted or the context is cancelled.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	r.mu.Lock()
	r.refillLocked()

	if len(r.queue) == 0 && r.tokens >= 1 {
		r.tokens--
		r.mu.Unlock()
		return nil
	}

	grant := make(chan struct{})
	r.queue = append(r.queue, grant)
	if !r.draining {
		r.draining = true
		go r.drain()
	}
	r.mu.Unlock()

	select {
	case <-grant:
		return nil
	case <-ctx.Done():
		r.abandon(grant)
		select {
		case <-grant:
			// Granted while we were cancelling; keep the token.
			return nil
		default:
		}
		return ctx.Err()
	}
}

// TryAcquire grants a token only when one is immediately available and no
// caller is queued ahead.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refillLocked()
	if len(r.queue) == 0 && r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// ReportRejection zeroes the bucket the moment the backend itself answers
// with a rate-limit rejection; the local approximation was evidently ahead
// of the real budget.
func (r *RateLimiter) ReportRejection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = 0
	r.lastRefill = time.Now()
}

// Tokens returns the current token count, for introspection and tests.
func (r *RateLimiter) Tokens() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refillLocked()
	return r.tokens
}

func (r *RateLimiter) drain() {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.draining = false
			r.mu.Unlock()
			return
		}

		r.refillLocked()
		if r.tokens >= 1 {
			r.tokens--
			head := r.queue[0]
			r.queue = r.queue[1:]
			close(head)
			r.mu.Unlock()
			continue
		}

		needed := 1 - r.tokens
		wait := time.Duration(needed / r.refillPerSec * float64(time.Second))
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		r.mu.Unlock()
		time.Sleep(wait)
	}
}

func (r *RateLimiter) abandon(grant chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.queue {
		if w == grant {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return
		}
	}
}

func (r *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now

	r.tokens += elapsed * r.refillPerSec
	if r.tokens > r.capacity {
		r.tokens = r.capacity
	}
}

// Credential pairs one API key with its own limiter; separate credentials
// have separate backend budgets, so a pool multiplies sustained throughput.
type Credential struct {
	APIKey  string
	Limiter *RateLimiter
}

// CredentialPool hands out credentials round-robin.
type CredentialPool struct {
	mu    sync.Mutex
	creds []Credential
	next  int
}

func NewCredentialPool(apiKeys []string, capacity int, window time.Duration) *CredentialPool {
	creds := make([]Credential, 0, len(apiKeys))
	for _, key := range apiKeys {
		creds = append(creds, Credential{
			APIKey:  key,
			Limiter: NewRateLimiter(capacity, window),
		})
	}
	return &CredentialPool{creds: creds}
}

// Next returns the next credential in rotation.
func (p *CredentialPool) Next() Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.creds) == 0 {
		return Credential{Limiter: NewRateLimiter(0, 0)}
	}
	c := p.creds[p.next]
	p.next = (p.next + 1) % len(p.creds)
	return c
}

// Size reports the number of pooled credentials.
func (p *CredentialPool) Size() int {
	return len(p.creds)
}
