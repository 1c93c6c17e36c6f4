// Package config provides configuration management for the enrichment
// engine. It loads values from environment variables with sensible defaults
// and validates them before the engine starts.
//
// Environment Variables:
//
// Application Settings:
//   - LOG_LEVEL: Logging level (default: info)
//   - REQUEST_TIMEOUT: Bound on one enrichment request including fallback (default: 30s)
//   - BATCH_WORKERS: Concurrent requests inside batch processing (default: 8)
//
// Cache Configuration:
//   - CACHE_ENABLED: Whether provider responses are cached (default: true)
//   - CACHE_DEFAULT_TTL: TTL for providers without an override (default: 5m)
//   - REDIS_ADDRESS: Redis server address; empty selects the in-process cache
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//
// Resiliency Defaults (per provider, overridable in code):
//   - PROVIDER_MAX_CONCURRENT: Bulkhead size (default: 10)
//   - PROVIDER_RATE_LIMIT: Requests per second (default: 50)
//   - PROVIDER_BURST_SIZE: Rate limiter burst (default: 25)
//   - PROVIDER_MAX_FAILURES: Consecutive failures before the breaker opens (default: 5)
//   - PROVIDER_BREAKER_TIMEOUT: Open-state duration (default: 30s)
//   - PROVIDER_MAX_RETRIES: Retries per call for transient failures (default: 2)
//   - PROVIDER_CALL_TIMEOUT: Per-call timeout (default: 10s)
//
// Lineage Configuration:
//   - LINEAGE_DB_PATH: SQLite file for lineage records; empty keeps them in memory
//
// Health Configuration:
//   - HEALTH_PROBE_INTERVAL: Background probe cadence (default: 30s)
//
// Events Configuration:
//   - EVENTS_CHANNEL: Redis pub/sub channel for lifecycle events (default: enrichment.events)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the enrichment engine. Load()
// populates it from the environment; Validate() must pass before use.
type Config struct {
	// Application settings
	LogLevel       string        // Logging level (debug, info, warn, error)
	RequestTimeout time.Duration // Bound on one enrichment request
	BatchWorkers   int           // Concurrent requests in batch processing

	// Cache configuration
	CacheEnabled    bool          // Whether provider responses are cached
	CacheDefaultTTL time.Duration // Default per-provider TTL
	RedisAddress    string        // Redis address; empty selects the local cache
	RedisPassword   string        // Redis authentication password
	RedisDB         int           // Redis database number (0-15)

	// Resiliency defaults applied to every provider
	ProviderMaxConcurrent  int           // Bulkhead size
	ProviderRateLimit      float64       // Requests per second
	ProviderBurstSize      int           // Rate limiter burst
	ProviderMaxFailures    int           // Consecutive failures before the breaker opens
	ProviderBreakerTimeout time.Duration // Open-state duration
	ProviderMaxRetries     int           // Retries per call
	ProviderCallTimeout    time.Duration // Per-call timeout

	// Lineage configuration
	LineageDBPath string // SQLite file path; empty keeps records in memory

	// Health configuration
	HealthProbeInterval time.Duration // Background probe cadence

	// Events configuration
	EventsChannel string // Redis pub/sub channel for lifecycle events
}

// Load creates a Config with values from environment variables, falling back
// to defaults for anything unset. Call Validate() before using it.
func Load() *Config {
	return &Config{
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		BatchWorkers:   getIntEnv("BATCH_WORKERS", 8),

		CacheEnabled:    getBoolEnv("CACHE_ENABLED", true),
		CacheDefaultTTL: getDurationEnv("CACHE_DEFAULT_TTL", 5*time.Minute),
		RedisAddress:    getEnv("REDIS_ADDRESS", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getIntEnv("REDIS_DB", 0),

		ProviderMaxConcurrent:  getIntEnv("PROVIDER_MAX_CONCURRENT", 10),
		ProviderRateLimit:      getFloatEnv("PROVIDER_RATE_LIMIT", 50),
		ProviderBurstSize:      getIntEnv("PROVIDER_BURST_SIZE", 25),
		ProviderMaxFailures:    getIntEnv("PROVIDER_MAX_FAILURES", 5),
		ProviderBreakerTimeout: getDurationEnv("PROVIDER_BREAKER_TIMEOUT", 30*time.Second),
		ProviderMaxRetries:     getIntEnv("PROVIDER_MAX_RETRIES", 2),
		ProviderCallTimeout:    getDurationEnv("PROVIDER_CALL_TIMEOUT", 10*time.Second),

		LineageDBPath: getEnv("LINEAGE_DB_PATH", ""),

		HealthProbeInterval: getDurationEnv("HEALTH_PROBE_INTERVAL", 30*time.Second),

		EventsChannel: getEnv("EVENTS_CHANNEL", "enrichment.events"),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable, accepting the forms
// strconv.ParseBool accepts. Unset or invalid values return the default.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv retrieves an integer environment variable or the default
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getFloatEnv retrieves a float environment variable or the default
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv retrieves a duration environment variable ("30s", "5m") or
// the default.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks that all configuration values are usable together. The
// engine should refuse to start on a validation error.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1")
	}

	if c.CacheEnabled && c.CacheDefaultTTL <= 0 {
		return fmt.Errorf("CACHE_DEFAULT_TTL must be positive when caching is enabled")
	}
	if c.RedisAddress != "" && (c.RedisDB < 0 || c.RedisDB > 15) {
		return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
	}

	if c.ProviderMaxConcurrent < 1 {
		return fmt.Errorf("PROVIDER_MAX_CONCURRENT must be at least 1")
	}
	if c.ProviderRateLimit <= 0 {
		return fmt.Errorf("PROVIDER_RATE_LIMIT must be positive")
	}
	if c.ProviderBurstSize < 1 {
		return fmt.Errorf("PROVIDER_BURST_SIZE must be at least 1")
	}
	if c.ProviderMaxFailures < 1 {
		return fmt.Errorf("PROVIDER_MAX_FAILURES must be at least 1")
	}
	if c.ProviderBreakerTimeout <= 0 {
		return fmt.Errorf("PROVIDER_BREAKER_TIMEOUT must be positive")
	}
	if c.ProviderMaxRetries < 0 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES must not be negative")
	}
	if c.ProviderCallTimeout <= 0 {
		return fmt.Errorf("PROVIDER_CALL_TIMEOUT must be positive")
	}

	if c.HealthProbeInterval <= 0 {
		return fmt.Errorf("HEALTH_PROBE_INTERVAL must be positive")
	}

	return nil
}
