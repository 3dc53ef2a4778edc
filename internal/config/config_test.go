package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LLM_API_KEYS", "key-1, key-2")
	t.Setenv("LLM_MODELS", "model-a,model-b")
}

func TestNewFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.APIURL)
	assert.Equal(t, []string{"key-1", "key-2"}, cfg.LLM.APIKeys)
	assert.Equal(t, []string{"model-a", "model-b"}, cfg.LLM.Models)
	assert.Equal(t, 16000, cfg.LLM.MaxOutputTokens)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, 120, cfg.LLM.TimeoutSeconds)
	assert.Equal(t, 60, cfg.LLM.RateLimitPerMinute)
	assert.Equal(t, 3, cfg.LLM.MaxAttemptsPerModel)
	assert.Equal(t, time.Second, cfg.LLM.BackoffBase)
	assert.Equal(t, time.Minute, cfg.LLM.BackoffMax)
	assert.Equal(t, 5, cfg.LLM.BreakerFailureThreshold)

	assert.Equal(t, "@every 1m", cfg.Scheduler.CronExpr)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.LockStale)
	assert.Equal(t, 3, cfg.Scheduler.ParallelChapterCount)
	assert.Equal(t, 3, cfg.Scheduler.MaxRetries)
	assert.Equal(t, 2, cfg.Scheduler.MaxAutoRetries)

	assert.Equal(t, 40000, cfg.Chunking.LargeChapterThreshold)
	assert.Equal(t, 3, cfg.Chunking.CheckpointInterval)
	assert.Equal(t, 3, cfg.Chunking.ChunkMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Chunking.InterChunkDelay)

	assert.Equal(t, "en", cfg.Translate.TargetLanguage.String())
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "data/translator.db", cfg.Storage.DBPath)
}

func TestNewFromEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_MAX_OUTPUT_TOKENS", "8000")
	t.Setenv("LOCK_STALE_MS", "30000")
	t.Setenv("PARALLEL_CHAPTER_COUNT", "5")
	t.Setenv("TARGET_LANGUAGE", "ko")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.LLM.MaxOutputTokens)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.LockStale)
	assert.Equal(t, 5, cfg.Scheduler.ParallelChapterCount)
	assert.Equal(t, "ko", cfg.Translate.TargetLanguage.String())
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestNewFromEnvRequiresCredentialsAndModels(t *testing.T) {
	t.Setenv("LLM_API_KEYS", "")
	t.Setenv("LLM_MODELS", "model-a")
	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_API_KEYS")

	t.Setenv("LLM_API_KEYS", "key")
	t.Setenv("LLM_MODELS", "")
	_, err = NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_MODELS")
}

func TestNewFromEnvRejectsBadTargetLanguage(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TARGET_LANGUAGE", "!!")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TARGET_LANGUAGE")
}

func TestNewFromEnvAppliesOptions(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := NewFromEnv(func(c *Config) {
		c.Scheduler.ParallelChapterCount = 7
	})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Scheduler.ParallelChapterCount)
}

func TestGetEnvListSkipsEmptyItems(t *testing.T) {
	t.Setenv("LIST_TEST", "a,, b ,")
	assert.Equal(t, []string{"a", "b"}, getEnvList("LIST_TEST"))

	t.Setenv("LIST_TEST", "")
	assert.Nil(t, getEnvList("LIST_TEST"))
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("INT_TEST", "not-a-number")
	assert.Equal(t, 42, getEnvInt("INT_TEST", 42))
}
