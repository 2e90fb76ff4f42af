package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{"PORT", "TOKEN_TTL", "CATALOG_SEED_PATH", "LOGIN_RATE_PER_MINUTE", "COMPAT_PERMISSION_STATUS"} {
		t.Setenv(name, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.LoginRatePerMinute)
	assert.False(t, cfg.CompatPermissionStatus)
	assert.Empty(t, cfg.CatalogSeedPath)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "spinning-secret")
	t.Setenv("TOKEN_TTL", "24h")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:8080, http://localhost:1234")
	t.Setenv("COMPAT_PERMISSION_STATUS", "true")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "5")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "spinning-secret", cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"http://localhost:8080", "http://localhost:1234"}, cfg.AllowedOrigins)
	assert.True(t, cfg.CompatPermissionStatus)
	assert.Equal(t, 5, cfg.LoginRatePerMinute)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("TOKEN_TTL", "not-a-duration")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "many")
	t.Setenv("COMPAT_PERMISSION_STATUS", "maybe")

	cfg := Load()
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.LoginRatePerMinute)
	assert.False(t, cfg.CompatPermissionStatus)
}
