package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "https://api.gong.io", cfg.GongBaseURL)
	assert.Equal(t, "https://api.fireflies.ai/graphql", cfg.FirefliesBaseURL)
	assert.Equal(t, "https://api.zoom.us", cfg.ZoomBaseURL)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, 24, cfg.AdminSessionTTLHours)
	assert.Equal(t, 60, cfg.OpenAITimeout)
	assert.False(t, cfg.EnableAISummary)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GONG_BASE_URL", "http://gong.local")
	t.Setenv("ENABLE_AI_SUMMARY", "true")
	t.Setenv("OPENAI_TIMEOUT", "15")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://gong.local", cfg.GongBaseURL)
	assert.True(t, cfg.EnableAISummary)
	assert.Equal(t, 15, cfg.OpenAITimeout)
}

func TestGetEnvList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{name: "unset", value: "", want: nil},
		{name: "single", value: "seller.com", want: []string{"seller.com"}},
		{name: "multiple with spaces", value: "seller.com, corp.seller.com ,other.io", want: []string{"seller.com", "corp.seller.com", "other.io"}},
		{name: "empty entries dropped", value: "seller.com,,", want: []string{"seller.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("INTERNAL_DOMAINS", tt.value)
			}
			assert.Equal(t, tt.want, getEnvList("INTERNAL_DOMAINS"))
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, getEnvInt("SOME_INT", 7))
	assert.Equal(t, 7, getEnvInt("SOME_INT_UNSET", 7))

	t.Setenv("SOME_INT_BAD", "not-a-number")
	assert.Equal(t, 7, getEnvInt("SOME_INT_BAD", 7))
}

func TestSetupLoggerLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug", Version: "test"}
	logger := cfg.SetupLogger()
	assert.Equal(t, "debug", logger.GetLevel().String())

	cfg.LogLevel = "nonsense"
	logger = cfg.SetupLogger()
	assert.Equal(t, "info", logger.GetLevel().String())
}
