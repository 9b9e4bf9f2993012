package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/overlays?sslmode=disable")
	t.Setenv("JWT_SECRET_KEY", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "https://api.frankfurter.app", cfg.ExchangeRateBaseURL)
	assert.Equal(t, 3*time.Second, cfg.ExchangeRateTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ExchangeRateTTL)
	assert.Equal(t, 8, cfg.ResolveConcurrency)
	assert.Equal(t, 200, cfg.MaxTicketsPerRequest)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("EXCHANGE_RATE_TTL", "90s")
	t.Setenv("RATE_WARMUP_INTERVAL", "0")
	t.Setenv("MAX_TICKETS_PER_REQUEST", "50")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 90*time.Second, cfg.ExchangeRateTTL)
	assert.Zero(t, cfg.RateWarmupInterval)
	assert.Equal(t, 50, cfg.MaxTicketsPerRequest)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"no database":       {"DATABASE_URL": ""},
		"no jwt secret":     {"JWT_SECRET_KEY": ""},
		"port not a number": {"SERVER_PORT": "http"},
		"port out of range": {"SERVER_PORT": "70000"},
		"bad duration":      {"EXCHANGE_RATE_TTL": "five minutes"},
		"zero timeout":      {"EXCHANGE_RATE_TIMEOUT": "0s"},
		"zero concurrency":  {"RESOLVE_CONCURRENCY": "0"},
		"negative max":      {"MAX_TICKETS_PER_REQUEST": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
