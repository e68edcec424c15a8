package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "jwt", cfg.Auth.Mode)
	assert.Equal(t, 20, cfg.RateLimit.Requests)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.NeedsFirebase())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORE_TYPE", "firestore")
	t.Setenv("AUTH_MODE", "firebase")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "10m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.NeedsFirebase())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"unknown store":     {"STORE_TYPE", "mongo"},
		"unknown auth":      {"AUTH_MODE", "basic"},
		"bad window":        {"RATE_LIMIT_WINDOW", "soon"},
		"bad requests":      {"RATE_LIMIT_REQUESTS", "many"},
		"non-positive rate": {"RATE_LIMIT_REQUESTS", "0"},
		"sub-second window": {"RATE_LIMIT_WINDOW", "500ms"},
		"zero window":       {"RATE_LIMIT_WINDOW", "0s"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
