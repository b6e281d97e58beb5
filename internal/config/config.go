// Package config provides configuration management for the calendar sync
// service. It loads settings from environment variables with sensible
// defaults and validates them before the process starts serving.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//
// Local Cache:
//   - CACHE_PATH: SQLite database file path (default: ./calendar_cache.db)
//
// Remote Sync Store:
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Cache Refresh:
//   - REFRESH_ENABLED: Enable the periodic cache refresh job (default: true)
//   - REFRESH_SCHEDULE: Cron schedule for cache refresh (default: @every 15m)
package config

import (
	"fmt"
	"strconv"

	"os"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration values for the calendar sync service.
// Load it with Load() and check it with Validate() before use.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Local cache configuration
	CachePath string // Path to the SQLite cache file

	// Remote sync store configuration
	RedisAddress  string // Redis server address (host:port)
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)
	RedisPoolSize string // Redis connection pool size

	// Cache refresh configuration
	RefreshEnabled  bool   // Whether the periodic cache refresh runs
	RefreshSchedule string // Cron expression for the refresh job
}

// Load creates a new Config instance with values loaded from environment
// variables, falling back to defaults where unset. Call Validate() on the
// result before use.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CachePath: getEnv("CACHE_PATH", "./calendar_cache.db"),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),

		RefreshEnabled:  getBoolEnv("REFRESH_ENABLED", true),
		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "@every 15m"),
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
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks that all configuration values are usable: a valid port,
// a non-empty cache path, a sane Redis database/pool and a parseable
// refresh schedule.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.CachePath == "" {
		return fmt.Errorf("CACHE_PATH must not be empty")
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if c.RefreshEnabled {
		if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
			return fmt.Errorf("REFRESH_SCHEDULE must be a valid cron expression: %v", err)
		}
	}

	return nil
}

// RedisDBNumber returns the Redis database number as an int. Validate()
// must have passed for the result to be meaningful.
func (c *Config) RedisDBNumber() int {
	db, _ := strconv.Atoi(c.RedisDB)
	return db
}

// RedisPoolSizeNumber returns the Redis pool size as an int.
func (c *Config) RedisPoolSizeNumber() int {
	size, _ := strconv.Atoi(c.RedisPoolSize)
	return size
}
