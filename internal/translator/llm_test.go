package translator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/novel-chapter-translator/internal/llm"
	"github.com/MimeLyc/novel-chapter-translator/internal/resilience"
)

type fakeCaller struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(model string, attempt int) (string, error)
}

func newFakeCaller(respond func(model string, attempt int) (string, error)) *fakeCaller {
	return &fakeCaller{calls: make(map[string]int), respond: respond}
}

func (f *fakeCaller) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls[req.Model]++
	attempt := f.calls[req.Model]
	f.mu.Unlock()
	return f.respond(req.Model, attempt)
}

func (f *fakeCaller) count(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[model]
}

func newTestTranslator(t *testing.T, caller Caller, models []string) *ModelFallbackTranslator {
	t.Helper()
	pool := resilience.NewCredentialPool([]string{"key"}, 1000, time.Minute)
	breakers := make(map[string]*resilience.CircuitBreaker)
	breakerFor := func(model string) *resilience.CircuitBreaker {
		if b, ok := breakers[model]; ok {
			return b
		}
		b := resilience.NewCircuitBreaker(model, 100, time.Minute)
		breakers[model] = b
		return b
	}
	tr := NewModelFallbackTranslator(caller, models, pool, breakerFor, CallOptions{
		MaxAttemptsPerModel: 3,
		AttemptTimeout:      time.Second,
		BackoffBase:         time.Millisecond,
		BackoffMax:          2 * time.Millisecond,
	})
	tr.sleep = func(context.Context, time.Duration) error { return nil }
	return tr
}

func TestTranslateFirstModelSucceeds(t *testing.T) {
	caller := newFakeCaller(func(model string, attempt int) (string, error) {
		return "translated text", nil
	})
	tr := newTestTranslator(t, caller, []string{"model-a", "model-b"})

	res, err := tr.Translate(context.Background(), Request{Content: "source text"})
	require.NoError(t, err)
	assert.Equal(t, "model-a", res.Model)
	assert.Equal(t, "translated text", res.Content)
	assert.Equal(t, 0, caller.count("model-b"))
}

func TestTranslateFallsOverAfterExhaustionAndOverload(t *testing.T) {
	caller := newFakeCaller(func(model string, attempt int) (string, error) {
		switch model {
		case "model-a":
			// Plain server errors burn the whole per-model retry budget.
			return "", &resilience.StatusError{StatusCode: 500, Body: "internal"}
		case "model-b":
			// Overloaded backends are abandoned after a single attempt.
			return "", &resilience.StatusError{StatusCode: 529, Body: "overloaded"}
		default:
			return "done", nil
		}
	})
	tr := newTestTranslator(t, caller, []string{"model-a", "model-b", "model-c"})

	res, err := tr.Translate(context.Background(), Request{Content: "source"})
	require.NoError(t, err)
	assert.Equal(t, "model-c", res.Model)
	assert.Equal(t, 3, caller.count("model-a"))
	assert.Equal(t, 1, caller.count("model-b"))
	assert.Equal(t, 1, caller.count("model-c"))
}

func TestTranslateNonRetryableAborts(t *testing.T) {
	caller := newFakeCaller(func(model string, attempt int) (string, error) {
		return "", &resilience.StatusError{StatusCode: 400, Body: "blocked by content_filter"}
	})
	tr := newTestTranslator(t, caller, []string{"model-a", "model-b"})

	_, err := tr.Translate(context.Background(), Request{Content: "source"})
	require.Error(t, err)
	apiErr := resilience.Classify(err)
	assert.Equal(t, resilience.KindContentBlocked, apiErr.Kind)
	assert.Equal(t, 1, caller.count("model-a"))
	assert.Equal(t, 0, caller.count("model-b"))
}

func TestTranslateAllModelsFailed(t *testing.T) {
	caller := newFakeCaller(func(model string, attempt int) (string, error) {
		return "", &resilience.StatusError{StatusCode: 500, Body: "internal"}
	})
	tr := newTestTranslator(t, caller, []string{"model-a", "model-b"})

	_, err := tr.Translate(context.Background(), Request{Content: "source"})
	require.Error(t, err)

	var allFailed *AllModelsFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Len(t, allFailed.Models, 2)
	assert.Equal(t, 3, caller.count("model-a"))
	assert.Equal(t, 3, caller.count("model-b"))
}

func TestTranslateEmptyResponseRetries(t *testing.T) {
	caller := newFakeCaller(func(model string, attempt int) (string, error) {
		if attempt < 3 {
			return "   ", nil
		}
		return "finally", nil
	})
	tr := newTestTranslator(t, caller, []string{"model-a"})

	res, err := tr.Translate(context.Background(), Request{Content: "source"})
	require.NoError(t, err)
	assert.Equal(t, "finally", res.Content)
	assert.Equal(t, 3, caller.count("model-a"))
}

func TestTranslateTitleTravelsThroughMarker(t *testing.T) {
	caller := newFakeCaller(func(model string, attempt int) (string, error) {
		return "<<<TITLE>>> The Awakening\n\ntranslated body", nil
	})
	tr := newTestTranslator(t, caller, []string{"model-a"})

	res, err := tr.Translate(context.Background(), Request{Content: "body", Title: "각성"})
	require.NoError(t, err)
	assert.Equal(t, "The Awakening", res.Title)
	assert.Equal(t, "translated body", res.Content)
}

func TestTranslateNoModels(t *testing.T) {
	tr := newTestTranslator(t, newFakeCaller(nil), nil)
	_, err := tr.Translate(context.Background(), Request{Content: "x"})
	require.Error(t, err)
}

func TestBackoffScalesForRateLimit(t *testing.T) {
	tr := newTestTranslator(t, newFakeCaller(nil), []string{"m"})
	tr.opts.BackoffBase = time.Second
	tr.opts.BackoffMax = time.Hour

	rate := tr.backoffFor(resilience.KindRateLimit, 0)
	server := tr.backoffFor(resilience.KindServerError, 0)
	// Rate limit backoff starts at 4x base; jitter stays within +/-20%.
	assert.GreaterOrEqual(t, rate, time.Duration(float64(4*time.Second)*0.8))
	assert.LessOrEqual(t, rate, time.Duration(float64(4*time.Second)*1.2))
	assert.GreaterOrEqual(t, server, time.Duration(float64(time.Second)*0.8))
	assert.LessOrEqual(t, server, time.Duration(float64(time.Second)*1.2))
}

func TestBackoffCapped(t *testing.T) {
	tr := newTestTranslator(t, newFakeCaller(nil), []string{"m"})
	tr.opts.BackoffBase = time.Second
	tr.opts.BackoffMax = 5 * time.Second

	capped := tr.backoffFor(resilience.KindServerError, 10)
	assert.LessOrEqual(t, capped, time.Duration(float64(5*time.Second)*1.2))
}
