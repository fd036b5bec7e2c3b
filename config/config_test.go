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

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, 3, cfg.MaxWorkers)
	assert.Equal(t, 16, cfg.QueueSize)
	assert.Equal(t, 1000, cfg.MaxJobs)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.Equal(t, 30*time.Second, cfg.Retention)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.SocketTimeout)
	assert.Equal(t, "US", cfg.GeoCountry)
	assert.Contains(t, cfg.UserAgent, "Chrome")
	assert.Contains(t, cfg.DownloadDir, "downloads")
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SNATCH_PORT", "8080")
	t.Setenv("SNATCH_MAX_WORKERS", "5")
	t.Setenv("SNATCH_RETENTION", "2m")
	t.Setenv("SNATCH_DOWNLOAD_DIR", "/tmp/snatch")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5, cfg.MaxWorkers)
	assert.Equal(t, 2*time.Minute, cfg.Retention)
	assert.Equal(t, "/tmp/snatch", cfg.DownloadDir)
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port not a number", "SNATCH_PORT", "not-a-port"},
		{"zero workers", "SNATCH_MAX_WORKERS", "0"},
		{"negative queue", "SNATCH_QUEUE_SIZE", "-1"},
		{"zero max jobs", "SNATCH_MAX_JOBS", "0"},
		{"bad duration", "SNATCH_RETENTION", "thirty seconds"},
		{"negative duration", "SNATCH_JOB_TTL", "-5m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
