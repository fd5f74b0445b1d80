//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("air-quality-test"))
	tc.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// startMosquitto runs an anonymous MQTT broker and returns its host and port.
func startMosquitto(ctx context.Context, t *testing.T) (string, int) {
	t.Helper()

	ctr, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "eclipse-mosquitto:2",
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			WaitingFor:   wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	tc.CleanupContainer(t, ctr)
	require.NoError(t, err, "start mosquitto container")

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "1883/tcp")
	require.NoError(t, err)
	return host, port.Int()
}

// fakeStation serves an Envista "latest" payload that tests can swap.
type fakeStation struct {
	mu      sync.Mutex
	payload string
	status  int
	server  *httptest.Server
}

func newFakeStation(t *testing.T, payload string) *fakeStation {
	t.Helper()
	fs := &fakeStation{payload: payload, status: http.StatusOK}
	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "ApiToken "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fs.status)
		_, _ = io.WriteString(w, fs.payload)
	}))
	t.Cleanup(fs.server.Close)
	return fs
}

func (fs *fakeStation) set(payload string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.payload = payload
}

func (fs *fakeStation) URL() string { return fs.server.URL }

const testToken = "integration-token"

// latestPayload renders a station payload measured at the given time.
func latestPayload(measuredAt time.Time, so2 float64) string {
	return fmt.Sprintf(`{"data":[{"datetime":%q,"channels":[
		{"id":1,"name":"NOX","value":30,"valid":true},
		{"id":2,"name":"NO2","value":20,"valid":true},
		{"id":3,"name":"O3","value":40,"valid":true},
		{"id":5,"name":"SO2","value":%g,"valid":true},
		{"id":6,"name":"PM2.5","value":25,"valid":true},
		{"id":7,"name":"Rain","value":0,"valid":true},
		{"id":8,"name":"Temp","value":24.5,"valid":true},
		{"id":9,"name":"RH","value":61,"valid":true}
	]}]}`, measuredAt.Format(time.RFC3339), so2)
}
