package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker = "localhost:9092"
	testToken     = "ApiToken test-token"
)

func withToken(t *testing.T) {
	t.Helper()
	t.Setenv("STATION_API_TOKEN", testToken)
}

func TestLoad_Defaults(t *testing.T) {
	withToken(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.svivaaqm.net/v1/envista", cfg.StationAPIURL)
	assert.Equal(t, 375, cfg.StationID)
	assert.Equal(t, testToken, cfg.StationAPIToken)
	assert.Equal(t, "MANA", cfg.StationDataSource)
	assert.Equal(t, 10*time.Second, cfg.StationTimeout)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Empty(t, cfg.IndexTableFile)
	assert.Equal(t, domain.DefaultIndexTable, cfg.IndexTable)
	assert.Equal(t, "second_smallest", cfg.ScoreSelector)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "air-quality-assessments", cfg.KafkaSinkTopic)
	assert.False(t, cfg.MQTTEnabled())
	assert.Equal(t, 1883, cfg.MQTTPort)
	assert.Equal(t, "air-quality-etl", cfg.MQTTClientID)
	assert.Equal(t, "airquality", cfg.MQTTTopicPrefix)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	withToken(t)
	t.Setenv("STATION_API_URL", "http://localhost:9999/v1/envista")
	t.Setenv("STATION_ID", "12")
	t.Setenv("STATION_DATA_SOURCE", "TEST")
	t.Setenv("STATION_TIMEOUT", "3s")
	t.Setenv("POLL_INTERVAL", "1m")
	t.Setenv("SCORE_SELECTOR", "minimum")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("MQTT_BROKER", "mqtt.local")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_TOPIC_PREFIX", "aq")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/v1/envista", cfg.StationAPIURL)
	assert.Equal(t, 12, cfg.StationID)
	assert.Equal(t, "TEST", cfg.StationDataSource)
	assert.Equal(t, 3*time.Second, cfg.StationTimeout)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, "minimum", cfg.ScoreSelector)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.True(t, cfg.MQTTEnabled())
	assert.Equal(t, 8883, cfg.MQTTPort)
	assert.Equal(t, "aq", cfg.MQTTTopicPrefix)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_MissingToken(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATION_API_TOKEN")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	withToken(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	withToken(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	withToken(t)
	t.Setenv("POLL_INTERVAL", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLL_INTERVAL")
}

func TestLoad_InvalidStationID(t *testing.T) {
	withToken(t)
	t.Setenv("STATION_ID", "abc")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATION_ID")
}

func TestLoad_InvalidScoreSelector(t *testing.T) {
	withToken(t)
	t.Setenv("SCORE_SELECTOR", "median")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCORE_SELECTOR")
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	withToken(t)
	t.Setenv("LOG_FORMAT", "xml")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	withToken(t)
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaDisabledWithoutBrokers(t *testing.T) {
	withToken(t)
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_IndexTableFile(t *testing.T) {
	withToken(t)
	t.Setenv("INDEX_TABLE_FILE", writeTableFile(t, validTableTOML))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, domain.IndexTable{
		{Low: 0, High: 100}, {Low: 101, High: 200}, {Low: 201, High: 300}, {Low: 301, High: 400}, {Low: 401, High: 450}, {Low: 451, High: 500},
	}, cfg.IndexTable)
}

func TestLoad_IndexTableFileMissing(t *testing.T) {
	withToken(t)
	t.Setenv("INDEX_TABLE_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INDEX_TABLE_FILE")
}

const validTableTOML = `
[[band]]
low = 0.0
high = 100.0

[[band]]
low = 101.0
high = 200.0

[[band]]
low = 201.0
high = 300.0

[[band]]
low = 301.0
high = 400.0

[[band]]
low = 401.0
high = 450.0

[[band]]
low = 451.0
high = 500.0
`

func writeTableFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadIndexTable_WrongBandCount(t *testing.T) {
	path := writeTableFile(t, "[[band]]\nlow = 0.0\nhigh = 49.0\n")
	_, err := LoadIndexTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 6 bands, got 1")
}

func TestLoadIndexTable_Overlapping(t *testing.T) {
	content := `
[[band]]
low = 0.0
high = 100.0
[[band]]
low = 100.0
high = 200.0
[[band]]
low = 201.0
high = 300.0
[[band]]
low = 301.0
high = 400.0
[[band]]
low = 401.0
high = 450.0
[[band]]
low = 451.0
high = 500.0
`
	_, err := LoadIndexTable(writeTableFile(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps")
}

func TestLoadIndexTable_Malformed(t *testing.T) {
	_, err := LoadIndexTable(writeTableFile(t, "[[band]\nlow = "))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode index table")
}
