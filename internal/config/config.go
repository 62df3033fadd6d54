package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DatabasePath string // SQLite file path, ":memory:" allowed for testing
	JWTSecret    string

	// LLM provider (OpenAI-compatible chat completions endpoint)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Business rules
	DailyPostLimit    int           // Max posts per user per calendar day
	SummaryCutoffHour int           // Local hour from which same-day summaries unlock
	UsernameCooldown  time.Duration // Minimum gap between username changes

	// Nightly pre-generation of summaries shortly after the cutoff
	NightlySummaries bool
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3001"),
		DatabasePath: getEnv("DATABASE_PATH", "whatido.db"),
		JWTSecret:    getEnv("JWT_SECRET", ""),

		LLMBaseURL: getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout: getDurationEnv("LLM_TIMEOUT", 60*time.Second),

		DailyPostLimit:    getIntEnv("DAILY_POST_LIMIT", 12),
		SummaryCutoffHour: getIntEnv("SUMMARY_CUTOFF_HOUR", 22),
		UsernameCooldown:  getDurationEnv("USERNAME_COOLDOWN", 24*time.Hour),

		NightlySummaries: getBoolEnv("NIGHTLY_SUMMARIES", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
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
