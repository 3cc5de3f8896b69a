package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 25, cfg.API.DefaultPerPage)
	assert.Equal(t, 100, cfg.API.MaxPerPage)
	assert.Equal(t, "@hourly", cfg.Audit.ArchiveCron)
	assert.True(t, cfg.Audit.Async)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("MAX_PER_PAGE", "50")
	t.Setenv("AUDIT_ASYNC", "false")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 50, cfg.API.MaxPerPage)
	assert.False(t, cfg.Audit.Async)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.API.RateLimitPerMinute)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"max below default", map[string]string{"MAX_PER_PAGE": "10", "DEFAULT_PER_PAGE": "20"}},
		{"bad cron", map[string]string{"AUDIT_ARCHIVE_CRON": "every tuesday"}},
		{"negative rate", map[string]string{"RATE_LIMIT_PER_MINUTE": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
