package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "REDIS_ADDR", "QUIZ_MIN_DWELL", "LEAD_NOTIFY_EMAILS", "CORS_ALLOWED_ORIGINS", "SUBMIT_RATE_PER_SECOND"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 4*time.Second, cfg.QuizMinDwell)
	assert.Equal(t, 30*24*time.Hour, cfg.QuizStateTTL)
	assert.Equal(t, 2, cfg.WindowsPerRoom)
	assert.Equal(t, 3, cfg.SubmitMaxPerPhone)
	assert.Equal(t, 0.2, cfg.SubmitRatePerSecond)
	assert.Nil(t, cfg.NotifyEmails)
	assert.Nil(t, cfg.CORSAllowedOrigins)
	assert.Equal(t, "Клининг", cfg.SendGridFromName)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("QUIZ_MIN_DWELL", "10s")
	t.Setenv("QUIZ_WINDOWS_PER_ROOM", "3")
	t.Setenv("SUBMIT_WINDOW", "1h")
	t.Setenv("SUBMIT_RATE_PER_SECOND", "1.5")
	t.Setenv("LEAD_NOTIFY_EMAILS", "ops@example.com, ,owner@example.com")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LEADS_QUEUE_URL", "https://sqs.local/leads")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://user@host/db", cfg.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.True(t, cfg.RedisTLS)
	assert.Equal(t, 10*time.Second, cfg.QuizMinDwell)
	assert.Equal(t, 3, cfg.WindowsPerRoom)
	assert.Equal(t, time.Hour, cfg.SubmitWindow)
	assert.Equal(t, 1.5, cfg.SubmitRatePerSecond)
	assert.Equal(t, []string{"ops@example.com", "owner@example.com"}, cfg.NotifyEmails)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "https://sqs.local/leads", cfg.LeadsQueueURL)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("QUIZ_MIN_DWELL", "soon")
	t.Setenv("QUIZ_WINDOWS_PER_ROOM", "many")
	t.Setenv("REDIS_TLS", "maybe")
	cfg := Load()
	assert.Equal(t, 4*time.Second, cfg.QuizMinDwell)
	assert.Equal(t, 2, cfg.WindowsPerRoom)
	assert.False(t, cfg.RedisTLS)
}
