package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// LLM providers
	LLMProvider      string
	AWSRegion        string
	AWSAccessKeyID   string
	AWSSecretKey     string
	BedrockModelID   string
	GeminiAPIKey     string
	GeminiModelID    string
	LLMRequestBudget time.Duration

	// Pipeline tuning
	ConversationWindow  time.Duration
	QuickReplyThreshold time.Duration
	GateCooldown        time.Duration
	AnalyzerCooldown    time.Duration
	GenerationLockTTL   time.Duration
	SessionIdleTTL      time.Duration

	// HTTP surface
	OpsAuthSecret      string
	CORSAllowedOrigins []string
	EventRateLimit     float64
	EventRateBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LLMProvider:      strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "bedrock"))),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:   getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
		BedrockModelID:   getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:    getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMRequestBudget: getEnvAsDuration("LLM_REQUEST_BUDGET", 45*time.Second),

		ConversationWindow:  getEnvAsDuration("CONVERSATION_WINDOW", 30*time.Minute),
		QuickReplyThreshold: getEnvAsDuration("QUICK_REPLY_THRESHOLD", 7*time.Minute),
		GateCooldown:        getEnvAsDuration("GATE_COOLDOWN", 30*time.Second),
		AnalyzerCooldown:    getEnvAsDuration("ANALYZER_COOLDOWN", 60*time.Second),
		GenerationLockTTL:   getEnvAsDuration("GENERATION_LOCK_TTL", 5*time.Minute),
		SessionIdleTTL:      getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),

		OpsAuthSecret:      getEnv("OPS_AUTH_SECRET", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
		EventRateLimit:     getEnvAsFloat("EVENT_RATE_LIMIT", 0),
		EventRateBurst:     getEnvAsInt("EVENT_RATE_BURST", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable, dropping
// empty entries.
func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
