package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string // "production", "development"
	RedisURL    string // optional shared render cache

	// Model client (OpenAI-compatible /chat/completions endpoint)
	LLMBaseURL           string
	LLMAPIKey            string
	LLMModel             string
	LLMRequestsPerSecond float64
	LLMTimeout           time.Duration

	// Token ceilings for outbound requests
	Budgets TokenBudgets

	// Chart rendering
	ChartThemeFile string // optional YAML file overriding palette and styling
	RenderCacheTTL time.Duration
}

// TokenBudgets are the independently configured token ceilings for an outbound request.
// All counts use the ~4 chars/token estimate.
type TokenBudgets struct {
	Total   int // hard ceiling; requests above it are rejected
	Context int // prior conversation messages
	Data    int // structured data attached to the request
	Prompt  int // final assembled prompt text
}

// DefaultTokenBudgets returns the budgets used when nothing is configured
func DefaultTokenBudgets() TokenBudgets {
	return TokenBudgets{
		Total:   100000,
		Context: 60000,
		Data:    20000,
		Prompt:  80000,
	}
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	defaults := DefaultTokenBudgets()

	return &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: strings.ToLower(getEnv("ENVIRONMENT", "development")),
		RedisURL:    getEnv("REDIS_URL", ""),

		LLMBaseURL:           strings.TrimRight(getEnv("LLM_BASE_URL", ""), "/"),
		LLMAPIKey:            getEnv("LLM_API_KEY", ""),
		LLMModel:             getEnv("LLM_MODEL", ""),
		LLMRequestsPerSecond: getFloatEnv("LLM_REQUESTS_PER_SECOND", 5),
		LLMTimeout:           getDurationEnv("LLM_TIMEOUT", 120*time.Second),

		Budgets: TokenBudgets{
			Total:   getIntEnv("TOKEN_BUDGET_TOTAL", defaults.Total),
			Context: getIntEnv("TOKEN_BUDGET_CONTEXT", defaults.Context),
			Data:    getIntEnv("TOKEN_BUDGET_DATA", defaults.Data),
			Prompt:  getIntEnv("TOKEN_BUDGET_PROMPT", defaults.Prompt),
		},

		ChartThemeFile: getEnv("CHART_THEME_FILE", ""),
		RenderCacheTTL: getDurationEnv("RENDER_CACHE_TTL", 30*time.Minute),
	}
}

// IsProduction reports whether the server runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
