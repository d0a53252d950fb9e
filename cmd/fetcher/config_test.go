package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFetcherConfig_DefaultsWhenEnvUnset(t *testing.T) {
	cfg := loadFetcherConfig()

	assert.Equal(t, "127.0.0.1:8901", cfg.BridgeAddr)
	assert.Equal(t, 30*time.Second, cfg.BridgeTimeout)
	assert.False(t, cfg.UseFakeAdapter)
	assert.Empty(t, cfg.ServiceKeyHash)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "jravan.realtime", cfg.KafkaTopic)
	assert.Equal(t, ":8080", cfg.Ops.Addr)
	assert.Equal(t, 5*time.Minute, cfg.LoopInterval)
}

func TestLoadFetcherConfig_ReadsOverridesFromEnv(t *testing.T) {
	t.Setenv("VENDOR_BRIDGE_ADDR", "10.0.0.5:9000")
	t.Setenv("VENDOR_USE_FAKE_ADAPTER", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("DAEMON_LOOP_INTERVAL", "90s")

	cfg := loadFetcherConfig()

	assert.Equal(t, "10.0.0.5:9000", cfg.BridgeAddr)
	assert.True(t, cfg.UseFakeAdapter)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.LoopInterval)
}
