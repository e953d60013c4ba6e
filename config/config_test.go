package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piazza/models"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_ENV", "STORE", "JWT_SECRET", "TOKEN_TTL", "POST_EXPIRATION",
		"SWEEP_INTERVAL", "TOPICS", "REDIS_ADDR", "NATS_URL", "MOST_ACTIVE_TTL", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsLocal())
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, localJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.PostExpiration)
	assert.Zero(t, cfg.SweepInterval)
	assert.Equal(t, time.Minute, cfg.MostActiveTTL)
	assert.Equal(t, models.DefaultTopics, cfg.Topics.Topics())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "Memory")
	t.Setenv("POST_EXPIRATION", "90s")
	t.Setenv("SWEEP_INTERVAL", "15s")
	t.Setenv("TOPICS", "Tech, Science")
	t.Setenv("CORS_ORIGINS", " https://app.example.com ,")

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.IsLocal())
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 90*time.Second, cfg.PostExpiration)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
	assert.Equal(t, []models.Topic{models.TopicTech, "Science"}, cfg.Topics.Topics())
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSOrigins)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"secret required outside local", map[string]string{"APP_ENV": "prod", "JWT_SECRET": ""}},
		{"bad duration", map[string]string{"POST_EXPIRATION": "five minutes"}},
		{"non-positive expiration", map[string]string{"POST_EXPIRATION": "-1m"}},
		{"unknown store", map[string]string{"STORE": "postgres"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "local")
			t.Setenv("STORE", "")
			t.Setenv("POST_EXPIRATION", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()

			assert.Error(t, err)
		})
	}
}
