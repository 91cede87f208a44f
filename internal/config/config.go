package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything companiond reads from the environment.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// DBPath is the sqlite database file ("file::memory:?cache=shared"
	// style values work for throwaway setups).
	DBPath string

	// AnthropicKey authenticates against the Anthropic API.
	AnthropicKey string

	// Model is the generation model identifier, also the ModelName
	// component of every CompanionKey.
	Model string

	// Temperature is the fixed sampling temperature. Not tunable per
	// request.
	Temperature float64

	// MaxTokens caps the model response length.
	MaxTokens int64

	// HistoryWindow is the maximum number of trailing history lines a
	// read returns.
	HistoryWindow int

	// PromptMaxBytes bounds the assembled prompt; recent history is
	// truncated oldest-first to fit.
	PromptMaxBytes int

	// RateLimitRequests / RateLimitWindow: at most N requests per
	// identity within the rolling window.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// AuthTokens maps bearer tokens to "userID:displayName" pairs,
	// comma-separated: "tok1=u1:Alice,tok2=u2:Bob".
	AuthTokens string

	// ONNXModelPath / ONNXTokenizerPath locate the local embedding
	// model files for onnx-tagged builds. Ignored otherwise.
	ONNXModelPath     string
	ONNXTokenizerPath string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:              getEnv("COMPANIOND_ADDR", ":8080"),
		DBPath:            getEnv("COMPANIOND_DB", "companiond.db"),
		AnthropicKey:      os.Getenv("ANTHROPIC_API_KEY"),
		Model:             getEnv("COMPANIOND_MODEL", "claude-sonnet-4-20250514"),
		AuthTokens:        os.Getenv("COMPANIOND_AUTH_TOKENS"),
		HistoryWindow:     getEnvInt("COMPANIOND_HISTORY_WINDOW", 30),
		PromptMaxBytes:    getEnvInt("COMPANIOND_PROMPT_MAX_BYTES", 12000),
		RateLimitRequests: getEnvInt("COMPANIOND_RATE_LIMIT", 10),
		ONNXModelPath:     os.Getenv("COMPANIOND_ONNX_MODEL"),
		ONNXTokenizerPath: os.Getenv("COMPANIOND_ONNX_TOKENIZER"),
	}

	cfg.Temperature = getEnvFloat("COMPANIOND_TEMPERATURE", 0.8)

	maxTokens := getEnvInt("COMPANIOND_MAX_TOKENS", 1024)
	cfg.MaxTokens = int64(maxTokens)

	windowSecs := getEnvInt("COMPANIOND_RATE_WINDOW_SECONDS", 10)
	cfg.RateLimitWindow = time.Duration(windowSecs) * time.Second

	if cfg.AnthropicKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
