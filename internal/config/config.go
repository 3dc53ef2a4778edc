package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config holds all application configuration, read from environment
// variables with sensible defaults.
//
// LLM configuration:
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_API_KEYS: comma-separated credential pool (required)
// - LLM_MODELS: comma-separated ordered fallback model list (required)
// - LLM_MAX_OUTPUT_TOKENS: max tokens per completion (default: 16000)
// - LLM_TEMPERATURE: sampling temperature (default: 0.3)
// - LLM_TIMEOUT: per-attempt timeout in seconds (default: 120)
// - LLM_RATE_LIMIT_PER_MINUTE: token bucket capacity per credential (default: 60)
// - LLM_TIKTOKEN_ENCODING: tiktoken encoding for exact token counts (optional)
//
// Scheduler configuration:
// - SCHEDULER_CRON: tick schedule (default: "@every 1m")
// - LOCK_STALE_MS: job lease staleness window (default: 600000)
// - PARALLEL_CHAPTER_COUNT: batch fan-out per tick (default: 3)
// - JOB_MAX_RETRIES / JOB_MAX_AUTO_RETRIES: retry budgets (defaults: 3 / 2)
//
// Chunking configuration:
// - LARGE_CHAPTER_THRESHOLD: chars above which a chapter is chunked (default: 40000)
// - CHECKPOINT_INTERVAL: chunks between snapshot writes (default: 3)
// - CHUNK_MAX_ATTEMPTS: retry budget per chunk (default: 3)
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Chunking  ChunkingConfig  `json:"chunking"`
	Translate TranslateConfig `json:"translate"`
	HTTP      HTTPConfig      `json:"http"`
	Storage   StorageConfig   `json:"storage"`
	LogLevel  string          `json:"log_level"`
}

type LLMConfig struct {
	APIURL             string   `json:"api_url"`
	APIKeys            []string `json:"-"`
	Models             []string `json:"models"`
	MaxOutputTokens    int      `json:"max_output_tokens"`
	Temperature        float64  `json:"temperature"`
	TimeoutSeconds     int      `json:"timeout_seconds"`
	SiteURL            string   `json:"site_url"`
	AppName            string   `json:"app_name"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute"`
	TiktokenEncoding   string   `json:"tiktoken_encoding"`

	MaxAttemptsPerModel     int           `json:"max_attempts_per_model"`
	BackoffBase             time.Duration `json:"backoff_base"`
	BackoffMax              time.Duration `json:"backoff_max"`
	BreakerFailureThreshold int           `json:"breaker_failure_threshold"`
	BreakerResetTimeout     time.Duration `json:"breaker_reset_timeout"`
}

type SchedulerConfig struct {
	CronExpr             string        `json:"cron_expr"`
	LockStale            time.Duration `json:"lock_stale"`
	ParallelChapterCount int           `json:"parallel_chapter_count"`
	MaxRetries           int           `json:"max_retries"`
	MaxAutoRetries       int           `json:"max_auto_retries"`
}

type ChunkingConfig struct {
	LargeChapterThreshold int           `json:"large_chapter_threshold"`
	CheckpointInterval    int           `json:"checkpoint_interval"`
	ChunkMaxAttempts      int           `json:"chunk_max_attempts"`
	AbortConsecutive      int           `json:"abort_consecutive"`
	AbortFailureRate      float64       `json:"abort_failure_rate"`
	AbortMinSample        int           `json:"abort_min_sample"`
	InterChunkDelay       time.Duration `json:"inter_chunk_delay"`
}

type TranslateConfig struct {
	TargetLanguage language.Tag `json:"target_language"`
}

type HTTPConfig struct {
	Addr     string `json:"addr"`
	APIToken string `json:"-"`
}

type StorageConfig struct {
	DBPath string `json:"db_path"`
}

// Option is a function type for configuring Config.
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options. A .env file is loaded best-effort first.
func NewFromEnv(opts ...Option) (*Config, error) {
	_ = godotenv.Load()

	targetLang, err := language.Parse(getEnvString("TARGET_LANGUAGE", "en"))
	if err != nil {
		return nil, fmt.Errorf("invalid TARGET_LANGUAGE: %w", err)
	}

	config := &Config{
		LLM: LLMConfig{
			APIURL:             getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			APIKeys:            getEnvList("LLM_API_KEYS"),
			Models:             getEnvList("LLM_MODELS"),
			MaxOutputTokens:    getEnvInt("LLM_MAX_OUTPUT_TOKENS", 16000),
			Temperature:        getEnvFloat("LLM_TEMPERATURE", 0.3),
			TimeoutSeconds:     getEnvInt("LLM_TIMEOUT", 120),
			SiteURL:            getEnvString("LLM_SITE_URL", ""),
			AppName:            getEnvString("LLM_APP_NAME", "novel-chapter-translator"),
			RateLimitPerMinute: getEnvInt("LLM_RATE_LIMIT_PER_MINUTE", 60),
			TiktokenEncoding:   getEnvString("LLM_TIKTOKEN_ENCODING", ""),

			MaxAttemptsPerModel:     getEnvInt("LLM_MAX_ATTEMPTS_PER_MODEL", 3),
			BackoffBase:             getEnvMillis("LLM_BACKOFF_BASE_MS", 1000),
			BackoffMax:              getEnvMillis("LLM_BACKOFF_MAX_MS", 60000),
			BreakerFailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			BreakerResetTimeout:     getEnvMillis("BREAKER_RESET_MS", 60000),
		},
		Scheduler: SchedulerConfig{
			CronExpr:             getEnvString("SCHEDULER_CRON", "@every 1m"),
			LockStale:            getEnvMillis("LOCK_STALE_MS", 600000),
			ParallelChapterCount: getEnvInt("PARALLEL_CHAPTER_COUNT", 3),
			MaxRetries:           getEnvInt("JOB_MAX_RETRIES", 3),
			MaxAutoRetries:       getEnvInt("JOB_MAX_AUTO_RETRIES", 2),
		},
		Chunking: ChunkingConfig{
			LargeChapterThreshold: getEnvInt("LARGE_CHAPTER_THRESHOLD", 40000),
			CheckpointInterval:    getEnvInt("CHECKPOINT_INTERVAL", 3),
			ChunkMaxAttempts:      getEnvInt("CHUNK_MAX_ATTEMPTS", 3),
			AbortConsecutive:      getEnvInt("CHUNK_ABORT_CONSECUTIVE", 3),
			AbortFailureRate:      getEnvFloat("CHUNK_ABORT_FAILURE_RATE", 0.5),
			AbortMinSample:        getEnvInt("CHUNK_ABORT_MIN_SAMPLE", 4),
			InterChunkDelay:       getEnvMillis("INTER_CHUNK_DELAY_MS", 500),
		},
		Translate: TranslateConfig{
			TargetLanguage: targetLang,
		},
		HTTP: HTTPConfig{
			Addr:     getEnvString("HTTP_ADDR", ":8080"),
			APIToken: getEnvString("HTTP_API_TOKEN", ""),
		},
		Storage: StorageConfig{
			DBPath: getEnvString("DB_PATH", "data/translator.db"),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if len(c.LLM.APIKeys) == 0 {
		return fmt.Errorf("LLM_API_KEYS is required")
	}
	if len(c.LLM.Models) == 0 {
		return fmt.Errorf("LLM_MODELS is required")
	}
	if c.Scheduler.ParallelChapterCount <= 0 {
		return fmt.Errorf("PARALLEL_CHAPTER_COUNT must be positive")
	}
	if c.Chunking.CheckpointInterval <= 0 {
		return fmt.Errorf("CHECKPOINT_INTERVAL must be positive")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList parses a comma-separated env value, skipping empty items.
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ret := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ret = append(ret, trimmed)
		}
	}
	return ret
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}
