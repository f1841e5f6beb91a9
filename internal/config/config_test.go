package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tickerflow/internal/model/enum"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, 500*time.Millisecond, cfg.Kafka.PollTimeout)
	require.Equal(t, 1024, cfg.Ring.Size)
	require.Equal(t, 10*time.Minute, cfg.Cache.MinTTL)
	require.Equal(t, 20*time.Minute, cfg.Cache.MaxTTL)
	require.Equal(t, 2000, cfg.Telemetry.QueueSize)
	require.Equal(t, 15*time.Second, cfg.Server.ShutdownGrace)
	require.False(t, cfg.Telemetry.Enable)

	require.Len(t, cfg.Kafka.Consumers, 1)
	require.Equal(t, "tickerflow-collector", cfg.Kafka.Consumers[0].GroupID)
	require.Equal(t, "ticker-schedule", cfg.Kafka.Consumers[0].Topic)
	require.Equal(t, 1, cfg.Kafka.Consumers[0].Count)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
kafka:
  brokers: ["k1:9092", "k2:9092"]
  clientId: collector
  scheduleTopic: schedule
  resultTopic: result
  consumers:
    - groupId: spot
      count: 2
ring:
  size: 64
  workers: 4
dispatch:
  schedules:
    spot: "@every 5m"
    perpetual: "0 */5 * * * *"
telemetry:
  enable: true
  flushInterval: 2s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.Len(t, cfg.Kafka.Consumers, 1)
	c := cfg.Kafka.Consumers[0]
	require.Equal(t, "schedule", c.Topic)
	require.Equal(t, "collector", c.ClientID)
	require.Equal(t, "spot", c.Name)
	require.Equal(t, 2, c.Count)

	require.Equal(t, 64, cfg.Ring.Size)
	require.True(t, cfg.Telemetry.Enable)
	require.Equal(t, 2*time.Second, cfg.Telemetry.FlushInterval)
	require.Equal(t, 100, cfg.Telemetry.BatchSize)

	categories, err := cfg.Dispatch.Categories()
	require.NoError(t, err)
	require.Equal(t, map[enum.DataCategory]string{
		enum.CategorySpot:      "@every 5m",
		enum.CategoryPerpetual: "0 */5 * * * *",
	}, categories)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TICKERFLOW_KAFKA_RESULTTOPIC", "result-from-env")
	t.Setenv("TICKERFLOW_TELEMETRY_ENABLE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "result-from-env", cfg.Kafka.ResultTopic)
	require.True(t, cfg.Telemetry.Enable)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "ring not power of two", body: "ring:\n  size: 100\n"},
		{name: "unknown category", body: "dispatch:\n  schedules:\n    candle: \"@every 1m\"\n"},
		{name: "empty schedule", body: "dispatch:\n  schedules:\n    spot: \"\"\n"},
		{name: "consumer without group", body: "kafka:\n  consumers:\n    - topic: schedule\n"},
		{name: "ttl bounds", body: "cache:\n  minTTL: 20m\n  maxTTL: 10m\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
