package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// DatabaseURL enables the Postgres booking log when set.
	DatabaseURL string

	GeminiAPIKey  string
	GeminiModelID string
	LLMTimeout    time.Duration
	// LLMMaxRPS caps outgoing LLM requests per second (0 disables the limiter).
	LLMMaxRPS float64

	CalendarBaseURL string
	CalendarAPIKey  string
	CalendarTimeout time.Duration

	// FlowTTL is how long an abandoned mid-flow conversation stays resumable.
	FlowTTL        time.Duration
	SlotCount      int
	SlotWindowDays int
	BookingRetries int

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMTimeout:    getEnvAsDuration("LLM_TIMEOUT", 12*time.Second),
		LLMMaxRPS:     getEnvAsFloat("LLM_MAX_RPS", 5),

		CalendarBaseURL: getEnv("CALENDAR_BASE_URL", ""),
		CalendarAPIKey:  getEnv("CALENDAR_API_KEY", ""),
		CalendarTimeout: getEnvAsDuration("CALENDAR_TIMEOUT", 10*time.Second),

		FlowTTL:        getEnvAsDuration("FLOW_TTL", 45*time.Minute),
		SlotCount:      getEnvAsInt("SLOT_COUNT", 5),
		SlotWindowDays: getEnvAsInt("SLOT_WINDOW_DAYS", 14),
		BookingRetries: getEnvAsInt("BOOKING_RETRIES", 2),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Atende Já"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
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
