package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
	assert.Equal(t, "safety.db", cfg.DBPath)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/payment", cfg.PaymentPath)
	assert.Equal(t, "/dashboard", cfg.DashboardPath)
	assert.Equal(t, 100, cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, 720*time.Hour, cfg.AuditRetention)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_JWTModeRequiresSecret(t *testing.T) {
	os.Clearenv()
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_NoAuthMode(t *testing.T) {
	os.Clearenv()
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("HTTP_LISTEN_ADDR", ":9090")
	t.Setenv("OVERRIDES_DIR", "/etc/safety/overrides")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPListenAddr)
	assert.Equal(t, "/etc/safety/overrides", cfg.OverridesDir)
}

func TestLoad_InvalidAuthMode(t *testing.T) {
	os.Clearenv()
	t.Setenv("AUTH_MODE", "api-key")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	os.Clearenv()
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("RATE_LIMIT_RPS", "0")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadWithPrefix(t *testing.T) {
	os.Clearenv()
	t.Setenv("SAFETY_AUTH_MODE", "none")
	t.Setenv("SAFETY_LOG_LEVEL", "debug")
	cfg, err := LoadWithPrefix("SAFETY")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestConfig_CORSOriginList(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.CORSOriginList())

	cfg.CORSOrigins = "https://a.example, ,https://b.example "
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOriginList())
}
