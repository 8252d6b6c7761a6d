package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// JWT
	JWTSecret     string
	TokenLifetime time.Duration

	// Upstream provider
	GeminiAPIKey    string
	GeminiEndpoint  string
	UpstreamTimeout time.Duration

	// CORS
	AllowedOrigin string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-pro-latest:generateContent"

func Load() (*Config, error) {
	// Load .env if it exists (local dev); deployed environments inject vars directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		TokenLifetime:     getEnvDuration("TOKEN_LIFETIME", time.Hour),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiEndpoint:    getEnv("GEMINI_ENDPOINT", defaultGeminiEndpoint),
		UpstreamTimeout:   getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
	}

	// Refuse to start without secrets; the service must never run unsigned
	// or hit the provider unauthenticated. The database URL carries
	// credentials too, so it gets no baked-in default.
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	return cfg, nil
}

// IsDevelopment reports whether internal error detail may be included in
// client-visible responses.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
