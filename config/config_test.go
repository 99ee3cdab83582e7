package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":50051", cfg.Server.ListenAddr)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
listen_addr = ":6000"

[snapshot]
interval = "2m"

[kafka]
enabled = true
brokers = ["k1:9092", "k2:9092"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Server.ListenAddr)
	assert.Equal(t, 2*time.Minute, cfg.Snapshot.Interval.Get())
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	// Untouched sections keep their defaults.
	assert.Equal(t, "bondbook.trades", cfg.Kafka.TradesTopic)
}
