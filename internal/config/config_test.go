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

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, time.Second, cfg.SyncConfig.SuppressWindow)
	assert.Equal(t, 2*time.Second, cfg.SyncConfig.NavigationTimeout)
	assert.Equal(t, 100.0, cfg.SyncConfig.HoverThresholdM)
	assert.False(t, cfg.KafkaConfig.Enabled())
	assert.Empty(t, cfg.RedisConfig.Addr)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TRAILVIEW_SERVICE_PORT", ":9090")
	t.Setenv("TRAILVIEW_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("TRAILVIEW_SYNC_SUPPRESS_WINDOW", "1500ms")
	t.Setenv("TRAILVIEW_DB_PORT", "6543")
	t.Setenv("TRAILVIEW_WS_ALLOWED_ORIGINS", "https://trails.example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaConfig.Brokers)
	assert.Equal(t, 1500*time.Millisecond, cfg.SyncConfig.SuppressWindow)
	assert.Equal(t, []string{"https://trails.example.org"}, cfg.AllowedOrigins)
	assert.Contains(t, cfg.DBConfig.DSN(), "port=6543")
}

func TestLoad_RejectsInvalidSyncTiming(t *testing.T) {
	t.Setenv("TRAILVIEW_SYNC_HOVER_THRESHOLD_M", "0")

	_, err := Load()
	assert.Error(t, err)
}
