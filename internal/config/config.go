package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/8adimka/data-uploader/internal/docstore"
)

// Config holds all configuration parameters
type Config struct {
	// DocDBEndpoint and DocDBKey are nil when unset; the service decides what that means.
	DocDBEndpoint *string
	DocDBKey      *string
	DocDBDatabase string

	MaxRateLimitRetries int
	AllowBulkExecution  bool
	RetryBaseDelayMs    int
	RetryMaxDelayMs     int
	ConnectTimeoutMs    int

	HTTPAddr       string
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int

	// TrustProxyHeaders keys rate limiting on X-Forwarded-For / X-Real-IP. Enable
	// only behind a proxy that overwrites them.
	TrustProxyHeaders bool

	RedisAddr        string
	RecordTTLMinutes int

	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables and .env file
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to read .env file: %v", err)
	}

	config := &Config{
		DocDBEndpoint: getEnvOptional("DOCDB_ENDPOINT"),
		DocDBKey:      getEnvOptional("DOCDB_KEY"),
		DocDBDatabase: getEnv("DOCDB_DATABASE", "uploader"),

		MaxRateLimitRetries: getEnvInt("DOCDB_MAX_RATE_LIMIT_RETRIES", 10),
		AllowBulkExecution:  getEnvBool("DOCDB_ALLOW_BULK_EXECUTION", true),
		RetryBaseDelayMs:    getEnvInt("RETRY_BASE_DELAY_MS", 500),
		RetryMaxDelayMs:     getEnvInt("RETRY_MAX_DELAY_MS", 5000),
		ConnectTimeoutMs:    getEnvInt("DOCDB_CONNECT_TIMEOUT_MS", 10000),

		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		APIKey:         getEnv("API_KEY", ""),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RecordTTLMinutes: getEnvInt("RECORD_TTL_MINUTES", 60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if config.DocDBEndpoint == nil {
		log.Printf("Warning: DOCDB_ENDPOINT is not set, the driver default address will be used")
	}

	return config
}

// ClientPolicy converts the document database settings into a docstore.ClientPolicy.
func (c *Config) ClientPolicy() docstore.ClientPolicy {
	policy := docstore.DefaultClientPolicy()
	policy.AllowBulkExecution = c.AllowBulkExecution
	policy.MaxRateLimitRetries = c.MaxRateLimitRetries
	policy.RetryBaseDelay = time.Duration(c.RetryBaseDelayMs) * time.Millisecond
	policy.RetryMaxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
	policy.ConnectTimeout = time.Duration(c.ConnectTimeoutMs) * time.Millisecond
	return policy
}

// RecordTTL is how long provisioning records stay in the cache.
func (c *Config) RecordTTL() time.Duration {
	return time.Duration(c.RecordTTLMinutes) * time.Minute
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// getEnvOptional returns nil when the variable is unset or blank
func getEnvOptional(key string) *string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	return &value
}

// getEnvInt gets environment variable as integer with fallback
func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
		log.Printf("Warning: invalid integer value for %s: %s, using default: %d", key, value, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err == nil {
			return result
		}
		log.Printf("Warning: invalid number value for %s: %s, using default: %g", key, value, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		result, err := strconv.ParseBool(strings.TrimSpace(value))
		if err == nil {
			return result
		}
		log.Printf("Warning: invalid boolean value for %s: %s, using default: %t", key, value, fallback)
	}
	return fallback
}
