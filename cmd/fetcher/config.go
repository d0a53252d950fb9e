package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/jravan/ingest/internal/config"
	"github.com/jravan/ingest/internal/opsserver"
)

// fetcherConfig holds every environment-driven setting this binary needs
// across its five modes, loaded once at startup.
type fetcherConfig struct {
	BridgeAddr     string
	BridgeTimeout  time.Duration
	ServiceKey     string
	ServiceKeyHash string
	UseFakeAdapter bool

	KafkaBrokers []string
	KafkaTopic   string

	Ops opsserver.Config

	LoopInterval time.Duration
}

func loadFetcherConfig() fetcherConfig {
	return fetcherConfig{
		BridgeAddr:     config.GetEnvStr("VENDOR_BRIDGE_ADDR", "127.0.0.1:8901"),
		BridgeTimeout:  config.GetEnvDuration("VENDOR_BRIDGE_TIMEOUT", 30*time.Second),
		ServiceKey:     config.GetEnvStr("VENDOR_SERVICE_KEY", ""),
		ServiceKeyHash: config.GetEnvStr("VENDOR_SERVICE_KEY_HASH", ""),
		UseFakeAdapter: config.GetEnvBool("VENDOR_USE_FAKE_ADAPTER", false),

		KafkaBrokers: config.ParseCommaSeparatedList(config.GetEnvStr("KAFKA_BROKERS", "")),
		KafkaTopic:   config.GetEnvStr("KAFKA_REALTIME_TOPIC", "jravan.realtime"),

		Ops: opsserver.Config{
			Addr:            config.GetEnvStr("OPS_ADDR", ":8080"),
			ReadTimeout:     config.GetEnvDuration("OPS_READ_TIMEOUT", 5*time.Second),
			WriteTimeout:    config.GetEnvDuration("OPS_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: config.GetEnvDuration("OPS_SHUTDOWN_TIMEOUT", 15*time.Second),
		},

		LoopInterval: config.GetEnvDuration("DAEMON_LOOP_INTERVAL", 5*time.Minute),
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(
		os.Stderr,
		&slog.HandlerOptions{Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo)},
	))
}
