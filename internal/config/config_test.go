package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_TOKEN", "RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "CONVERSATION_PATH", "LOG_LEVEL",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL", "ARK_TEMPERATURE", "ARK_TOP_P", "ARK_MAX_TOKENS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Auth.Enabled())
	assert.Equal(t, RateLimitConfig{Max: 30, Window: time.Minute}, cfg.RateLimit)
	assert.Equal(t, "conversation.json", cfg.Archive.Path)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.False(t, cfg.AI.Enabled())
	require.NotNil(t, cfg.AI.MaxTokens)
	assert.Equal(t, DefaultMaxTokens, *cfg.AI.MaxTokens)
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, DefaultTemperature, *cfg.AI.Temperature, 1e-9)
	assert.Nil(t, cfg.AI.TopP)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:5000")
	t.Setenv("APP_TOKEN", " s3cret ")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "10")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("ARK_MODEL", "doubao")
	t.Setenv("ARK_TEMPERATURE", "0.2")
	t.Setenv("ARK_MAX_TOKENS", "128")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5000", cfg.Server.Addr)
	assert.Equal(t, "s3cret", cfg.Auth.AppToken)
	assert.Equal(t, RateLimitConfig{Max: 5, Window: 10 * time.Second}, cfg.RateLimit)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.True(t, cfg.AI.Enabled())
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.2, *cfg.AI.Temperature, 1e-9)
	require.NotNil(t, cfg.AI.MaxTokens)
	assert.Equal(t, 128, *cfg.AI.MaxTokens)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PORT":              "80 80",
		"RATE_LIMIT_MAX":    "0",
		"RATE_LIMIT_WINDOW": "soon",
		"LOG_LEVEL":         "loud",
		"ARK_TOP_P":         "high",
		"ARK_MAX_TOKENS":    "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
