package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DBDriver:      "sqlite",
		DatabaseURL:   "file::memory:",
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		BcryptCost:    10,
	}
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/auth")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("ACCESS_TTL", "5m")
	t.Setenv("REFRESH_TTL", "not-a-duration")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "user_events", cfg.KafkaTopic)
	assert.Equal(t, "auth_audit", cfg.AuditIndex)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "missing dsn", mutate: func(c *Config) { c.DatabaseURL = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "mysql" }},
		{name: "missing access secret", mutate: func(c *Config) { c.JWTSecret = nil }},
		{name: "missing refresh secret", mutate: func(c *Config) { c.RefreshSecret = nil }},
		{name: "same secrets", mutate: func(c *Config) { c.RefreshSecret = c.JWTSecret }},
		{name: "access longer than refresh", mutate: func(c *Config) { c.AccessTTL = 8 * 24 * time.Hour }},
		{name: "cost too low", mutate: func(c *Config) { c.BcryptCost = 2 }},
		{name: "admin without password", mutate: func(c *Config) { c.AdminUsername = "root" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestCSV(t *testing.T) {
	t.Parallel()

	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a", "b"}, CSV(" a ,b,"))
}
