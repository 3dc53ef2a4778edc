package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MimeLyc/novel-chapter-translator/internal/chunk"
	"github.com/MimeLyc/novel-chapter-translator/internal/config"
	"github.com/MimeLyc/novel-chapter-translator/internal/events"
	"github.com/MimeLyc/novel-chapter-translator/internal/jobs"
	"github.com/MimeLyc/novel-chapter-translator/internal/library"
	"github.com/MimeLyc/novel-chapter-translator/internal/llm"
	"github.com/MimeLyc/novel-chapter-translator/internal/resilience"
	"github.com/MimeLyc/novel-chapter-translator/internal/translator"
)

// Store is everything the pipeline needs from durable storage: the job claim
// protocol plus chapter, work and context reads/writes.
type Store interface {
	jobs.Store

	ResumeJob(ctx context.Context, jobID string) (bool, error)

	ClaimChapter(ctx context.Context, workID string, number int) (bool, error)
	RevertChapter(ctx context.Context, workID string, number int) error
	CompleteChapter(ctx context.Context, workID string, number int, content, title string) error
	SaveChapterSnapshot(ctx context.Context, workID string, number int, snapshot library.ProgressSnapshot) error
	ClearChapterSnapshot(ctx context.Context, workID string, number int) error
	GetChapterByNumber(ctx context.Context, workID string, number int) (*library.Chapter, error)
	ListTranslatingWithSnapshot(ctx context.Context, workID string) ([]*library.Chapter, error)
	CountChaptersByNumbers(ctx context.Context, workID string, numbers []int) (int, error)

	GetWork(ctx context.Context, workID string) (*library.Work, error)
	ListGlossary(ctx context.Context, workID string) ([]library.GlossaryEntry, error)
	ListCharacters(ctx context.Context, workID string) ([]library.CharacterEntry, error)
}

// Runtime owns the shared translation machinery: the LLM client, one circuit
// breaker per backend model, the credential pool and the chunk budget. It is
// built once at startup and shared by every scheduler tick.
type Runtime struct {
	cfg   *config.Config
	store Store
	bus   *events.Bus

	translator translator.Translator
	budget     *chunk.Budget

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

func NewRuntime(cfg *config.Config, store Store, bus *events.Bus) (*Runtime, error) {
	client, err := llm.NewClient(&llm.Config{
		APIURL:          cfg.LLM.APIURL,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		Temperature:     cfg.LLM.Temperature,
		TimeoutSeconds:  cfg.LLM.TimeoutSeconds,
		SiteURL:         cfg.LLM.SiteURL,
		AppName:         cfg.LLM.AppName,
	})
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	pool := resilience.NewCredentialPool(cfg.LLM.APIKeys, cfg.LLM.RateLimitPerMinute, time.Minute)
	if pool.Size() == 0 {
		return nil, fmt.Errorf("no credentials configured")
	}

	rt := &Runtime{
		cfg:      cfg,
		store:    store,
		bus:      bus,
		budget:   chunk.NewBudget(cfg.LLM.MaxOutputTokens, cfg.LLM.TiktokenEncoding),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}

	rt.translator = translator.NewModelFallbackTranslator(
		client,
		cfg.LLM.Models,
		pool,
		rt.BreakerFor,
		translator.CallOptions{
			MaxAttemptsPerModel: cfg.LLM.MaxAttemptsPerModel,
			AttemptTimeout:      time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
			BackoffBase:         cfg.LLM.BackoffBase,
			BackoffMax:          cfg.LLM.BackoffMax,
		},
	)
	return rt, nil
}

// BreakerFor returns the circuit breaker guarding one backend model, creating
// it on first use. Breakers persist for the process lifetime so failure
// history survives across ticks.
func (r *Runtime) BreakerFor(model string) *resilience.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	breaker, ok := r.breakers[model]
	if !ok {
		breaker = resilience.NewCircuitBreaker(model, r.cfg.LLM.BreakerFailureThreshold, r.cfg.LLM.BreakerResetTimeout)
		r.breakers[model] = breaker
	}
	return breaker
}

// loadContext assembles the prompt context for one work.
func (r *Runtime) loadContext(ctx context.Context, workID string) (library.TranslationContext, error) {
	work, err := r.store.GetWork(ctx, workID)
	if err != nil {
		return library.TranslationContext{}, fmt.Errorf("load work %s: %w", workID, err)
	}
	if work == nil {
		return library.TranslationContext{}, fmt.Errorf("work %s not found", workID)
	}
	glossary, err := r.store.ListGlossary(ctx, workID)
	if err != nil {
		return library.TranslationContext{}, fmt.Errorf("load glossary for %s: %w", workID, err)
	}
	characters, err := r.store.ListCharacters(ctx, workID)
	if err != nil {
		return library.TranslationContext{}, fmt.Errorf("load characters for %s: %w", workID, err)
	}
	return library.TranslationContext{
		Work:           *work,
		Glossary:       glossary,
		Characters:     characters,
		SourceLanguage: work.SourceLanguage,
		TargetLanguage: r.cfg.Translate.TargetLanguage.String(),
	}, nil
}

// LeaseOwner identifies this worker process in job leases.
func LeaseOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + "/" + uuid.NewString()[:8]
}
