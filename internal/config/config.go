// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings (admin API)
	JWTSecret     string
	JWTExpiration time.Duration

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultLLM      string
	ModelFull       string
	ModelFast       string

	// Conversation engine
	ToolCallingEnabled bool
	TurnTimeout        time.Duration
	HistoryWindow      int
	ReplyMaxLength     int

	// Caches
	CustomerCacheTTL time.Duration
	CartCacheTTL     time.Duration
	SearchCacheTTL   time.Duration
	CacheSweepEvery  time.Duration

	// Cart lifecycle
	CartTTL time.Duration

	// Session store
	RedisURL   string
	SessionTTL time.Duration

	// Payment
	PaymentBaseURL string

	// Business hours gate
	MaintenanceMode bool

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "openai"),
		ModelFull:       getEnv("MODEL_FULL", "gpt-4o"),
		ModelFast:       getEnv("MODEL_FAST", "gpt-4o-mini"),

		// Conversation engine
		ToolCallingEnabled: getBoolEnv("TOOL_CALLING_ENABLED", true),
		TurnTimeout:        getDurationEnv("TURN_TIMEOUT", 30*time.Second),
		HistoryWindow:      getIntEnv("HISTORY_WINDOW", 3),
		ReplyMaxLength:     getIntEnv("REPLY_MAX_LENGTH", 1600),

		// Caches
		CustomerCacheTTL: getDurationEnv("CUSTOMER_CACHE_TTL", 5*time.Minute),
		CartCacheTTL:     getDurationEnv("CART_CACHE_TTL", 30*time.Second),
		SearchCacheTTL:   getDurationEnv("SEARCH_CACHE_TTL", time.Hour),
		CacheSweepEvery:  getDurationEnv("CACHE_SWEEP_EVERY", 5*time.Minute),

		// Cart lifecycle
		CartTTL: getDurationEnv("CART_TTL", 24*time.Hour),

		// Session store
		RedisURL:   getEnv("REDIS_URL", ""),
		SessionTTL: getDurationEnv("SESSION_TTL", 2*time.Hour),

		// Payment
		PaymentBaseURL: getEnv("PAYMENT_BASE_URL", "https://garageconnect.gp"),

		// Business hours gate
		MaintenanceMode: getBoolEnv("MAINTENANCE_MODE", false),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
