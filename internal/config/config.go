package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sahil21666x/KE-PersonasAI/internal/llm"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // empty selects SQLite at SQLitePath
	SQLitePath  string
	RedisURL    string
	JWTSecret   string
	CORSOrigins []string

	// Generation backend
	LLM              llm.Options
	AgentCallTimeout time.Duration
	LLMRateLimit     float64 // calls per second, 0 disables pacing
	LLMRateBurst     int

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}
	return cfg
}

// FromEnv builds a Config from the current environment without validating it.
func FromEnv() *Config {
	provider := llm.Provider(strings.ToLower(getEnv("LLM_PROVIDER", string(llm.ProviderGemini))))

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/personas.db"),
		RedisURL:         os.Getenv("REDIS_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
		AgentCallTimeout: getDuration("AGENT_CALL_TIMEOUT", 30*time.Second),
		LLMRateLimit:     getFloat("LLM_RATE_LIMIT", 0),
		LLMRateBurst:     getInt("LLM_RATE_BURST", 5),
		AutoBlockEnabled: getEnv("AUTO_BLOCK_ENABLED", "false") == "true",

		RateLimitWhitelist: splitList(os.Getenv("RATE_LIMIT_WHITELIST")),
	}

	cfg.LLM = llm.Options{
		Provider:    provider,
		Model:       os.Getenv("LLM_MODEL"),
		Temperature: getFloat("LLM_TEMPERATURE", 0.7),
		MaxTokens:   getInt("LLM_MAX_TOKENS", 512),
	}
	switch provider {
	case llm.ProviderGemini:
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	case llm.ProviderOpenAI:
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.LLM.BaseURL = os.Getenv("OPENAI_BASE_URL")
	case llm.ProviderAnthropic:
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case llm.ProviderOllama:
		cfg.LLM.BaseURL = getEnv("OLLAMA_URL", "http://localhost:11434")
	}

	return cfg
}

// Validate reports missing settings that the server cannot run without.
// Missing generation credentials are not an error: turns then fail with a
// configuration error instead.
func (c *Config) Validate() error {
	if c.Env == "production" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	if c.AgentCallTimeout <= 0 {
		return errors.New("AGENT_CALL_TIMEOUT must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

// getDuration accepts Go durations ("45s") or plain seconds ("45").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

// splitList parses a comma-separated list, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
