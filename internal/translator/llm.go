package translator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/MimeLyc/novel-chapter-translator/internal/llm"
	"github.com/MimeLyc/novel-chapter-translator/internal/resilience"
	"github.com/MimeLyc/novel-chapter-translator/pkg/log"
)

// Caller is the one capability a backend model exposes. llm.Client satisfies
// it; tests substitute fakes.
type Caller interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// BreakerFor resolves the circuit breaker guarding one backend model.
type BreakerFor func(model string) *resilience.CircuitBreaker

// CallOptions tune the per-model retry loop.
type CallOptions struct {
	MaxAttemptsPerModel int
	AttemptTimeout      time.Duration
	BackoffBase         time.Duration
	BackoffMax          time.Duration
}

func (o CallOptions) withDefaults() CallOptions {
	if o.MaxAttemptsPerModel <= 0 {
		o.MaxAttemptsPerModel = 3
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 2 * time.Minute
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = time.Minute
	}
	return o
}

// AllModelsFailedError is raised when the whole ordered model list is
// exhausted without a successful translation.
type AllModelsFailedError struct {
	Models  []string
	LastErr error
}

func (e *AllModelsFailedError) Error() string {
	return fmt.Sprintf("ALL_MODELS_FAILED: %d models exhausted, last error: %v", len(e.Models), e.LastErr)
}

func (e *AllModelsFailedError) Unwrap() error {
	return e.LastErr
}

// ModelFallbackTranslator walks a fixed ordered list of interchangeable
// backend models. Every attempt runs behind the model's circuit breaker and
// a pooled per-credential rate limiter, raced against a timeout; failures are
// classified and drive retry, failover or abort.
type ModelFallbackTranslator struct {
	caller  Caller
	models  []string
	pool    *resilience.CredentialPool
	breaker BreakerFor
	opts    CallOptions

	// Replaceable in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewModelFallbackTranslator(caller Caller, models []string, pool *resilience.CredentialPool, breaker BreakerFor, opts CallOptions) *ModelFallbackTranslator {
	return &ModelFallbackTranslator{
		caller:  caller,
		models:  models,
		pool:    pool,
		breaker: breaker,
		opts:    opts.withDefaults(),
		sleep:   sleepCtx,
	}
}

func (t *ModelFallbackTranslator) Translate(ctx context.Context, req Request) (*Result, error) {
	if len(t.models) == 0 {
		return nil, fmt.Errorf("no models configured")
	}

	filtered := req.Context.FilterForContent(req.Content)
	prompt := BuildPrompt(filtered, req.Content)
	input := PrependTitle(req.Content, req.Title)

	var lastErr error
	for _, model := range t.models {
		text, err := t.tryModel(ctx, model, prompt, input)
		if err == nil {
			title, content := ExtractTitle(text)
			return &Result{Content: content, Title: title, Model: model}, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		apiErr := resilience.Classify(err)
		if !apiErr.Retryable() {
			// Misconfiguration or blocked content: no other model will do
			// better with the same request.
			return nil, apiErr
		}
		if apiErr.Overloaded() {
			log.Warn("model %s overloaded, falling over to next model", model)
		}
		lastErr = apiErr
	}

	return nil, &AllModelsFailedError{Models: t.models, LastErr: lastErr}
}

// tryModel runs the bounded retry loop for a single model. It returns early
// on non-retryable errors and on overloaded backends (the caller falls over
// to the next model for the latter).
func (t *ModelFallbackTranslator) tryModel(ctx context.Context, model, prompt, input string) (string, error) {
	breaker := t.breaker(model)

	var lastErr error
	for attempt := 0; attempt < t.opts.MaxAttemptsPerModel; attempt++ {
		text, err := t.attempt(ctx, breaker, model, prompt, input)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", err
		}

		apiErr := resilience.Classify(err)
		lastErr = apiErr
		if !apiErr.Retryable() || apiErr.Overloaded() {
			return "", apiErr
		}

		if attempt < t.opts.MaxAttemptsPerModel-1 {
			delay := t.backoffFor(apiErr.Kind, attempt)
			log.Debug("model %s attempt %d failed (%s), backing off %s", model, attempt+1, apiErr.Kind, delay)
			if err := t.sleep(ctx, delay); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}

func (t *ModelFallbackTranslator) attempt(ctx context.Context, breaker *resilience.CircuitBreaker, model, prompt, input string) (string, error) {
	if err := breaker.Allow(); err != nil {
		return "", err
	}

	cred := t.pool.Next()
	if err := cred.Limiter.Acquire(ctx); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, t.opts.AttemptTimeout)
	defer cancel()

	text, err := t.caller.Complete(callCtx, llm.CompletionRequest{
		Model:        model,
		APIKey:       cred.APIKey,
		SystemPrompt: prompt,
		UserMessage:  input,
	})
	if err != nil {
		apiErr := resilience.Classify(err)
		if apiErr.Kind == resilience.KindRateLimit {
			cred.Limiter.ReportRejection()
		}
		breaker.RecordFailure(apiErr.Kind.Fatal())
		return "", apiErr
	}

	if strings.TrimSpace(text) == "" {
		breaker.RecordFailure(false)
		return "", resilience.NewError(resilience.KindEmptyResponse, "backend returned empty text")
	}

	breaker.RecordSuccess()
	return text, nil
}

// backoffFor scales exponential backoff by error kind: rate limits wait much
// longer than transient server hiccups. Jitter spreads concurrent retries.
func (t *ModelFallbackTranslator) backoffFor(kind resilience.ErrorKind, attempt int) time.Duration {
	base := t.opts.BackoffBase
	if kind == resilience.KindRateLimit {
		base *= 4
	}

	delay := base << uint(attempt)
	if delay > t.opts.BackoffMax {
		delay = t.opts.BackoffMax
	}

	// +/-20% jitter
	jitter := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(delay) * jitter)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
