package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway.
type Config struct {
	Port      string
	Env       string
	BridgeURL string

	// Optional infrastructure
	RedisURL    string // rate limiting; limiter is disabled when unset
	DatabaseURL string // PostgreSQL audit log
	AuditDBPath string // SQLite audit log fallback

	// GatewayKeyHash is a bcrypt hash; when set, requests must carry the
	// matching X-Gateway-Key header.
	GatewayKeyHash string

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

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		BridgeURL:        getEnv("BRIDGE_URL", "http://127.0.0.1:9280"),
		RedisURL:         os.Getenv("REDIS_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AuditDBPath:      os.Getenv("AUDIT_DB_PATH"),
		GatewayKeyHash:   os.Getenv("GATEWAY_KEY_HASH"),
		AutoBlockEnabled: getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	// In production, require an explicit bridge URL
	if cfg.Env == "production" && os.Getenv("BRIDGE_URL") == "" {
		panic("BRIDGE_URL is required in production")
	}

	return cfg
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
