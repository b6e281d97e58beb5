package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./calendar_cache.db", cfg.CachePath)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.Equal(t, "0", cfg.RedisDB)
	assert.Equal(t, "10", cfg.RedisPoolSize)
	assert.True(t, cfg.RefreshEnabled)
	assert.Equal(t, "@every 15m", cfg.RefreshSchedule)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_PATH", "/tmp/cache.db")
	t.Setenv("REDIS_ADDRESS", "redis:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REFRESH_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/cache.db", cfg.CachePath)
	assert.Equal(t, "redis:6380", cfg.RedisAddress)
	assert.Equal(t, "3", cfg.RedisDB)
	assert.False(t, cfg.RefreshEnabled)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:            "8080",
			LogLevel:        "info",
			CachePath:       "./cache.db",
			RedisAddress:    "localhost:6379",
			RedisDB:         "0",
			RedisPoolSize:   "10",
			RefreshEnabled:  true,
			RefreshSchedule: "@every 15m",
		}
	}

	t.Run("valid config", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("invalid port", func(t *testing.T) {
		cfg := valid()
		cfg.Port = "not-a-port"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PORT")
	})

	t.Run("port out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Port = "70000"
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty cache path", func(t *testing.T) {
		cfg := valid()
		cfg.CachePath = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CACHE_PATH")
	})

	t.Run("redis db out of range", func(t *testing.T) {
		cfg := valid()
		cfg.RedisDB = "16"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REDIS_DB")
	})

	t.Run("invalid pool size", func(t *testing.T) {
		cfg := valid()
		cfg.RedisPoolSize = "0"
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid refresh schedule", func(t *testing.T) {
		cfg := valid()
		cfg.RefreshSchedule = "every now and then"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REFRESH_SCHEDULE")
	})

	t.Run("refresh schedule ignored when disabled", func(t *testing.T) {
		cfg := valid()
		cfg.RefreshEnabled = false
		cfg.RefreshSchedule = "garbage"
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_NumericAccessors(t *testing.T) {
	cfg := &Config{RedisDB: "4", RedisPoolSize: "25"}
	assert.Equal(t, 4, cfg.RedisDBNumber())
	assert.Equal(t, 25, cfg.RedisPoolSizeNumber())
}
