package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRACKER_AUTH_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 2, cfg.Timer.Workers)
	assert.Equal(t, 30*24*time.Hour, cfg.Guest.SessionTTL)
	assert.Equal(t, time.Second, cfg.Countdown.Tick)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("TRACKER_AUTH_JWT_SECRET", testSecret)
	t.Setenv("TRACKER_DATABASE_URL", "postgres://u:p@db:5432/tracker")
	t.Setenv("TRACKER_TIMER_WORKERS", "4")
	t.Setenv("TRACKER_COUNTDOWN_TICK", "250ms")
	t.Setenv("TRACKER_REDIS_URL", "redis://cache:6379/0")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/tracker", cfg.Database.URL)
	assert.Equal(t, 4, cfg.Timer.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Countdown.Tick)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"short secret", map[string]string{"TRACKER_AUTH_JWT_SECRET": "69secret69"}},
		{"bad log level", map[string]string{"TRACKER_AUTH_JWT_SECRET": testSecret, "TRACKER_SERVER_LOG_LEVEL": "loud"}},
		{"no workers", map[string]string{"TRACKER_AUTH_JWT_SECRET": testSecret, "TRACKER_TIMER_WORKERS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRACKER_AUTH_JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
