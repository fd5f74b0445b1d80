package station

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

const latestPayload = `{
  "stationId": 375,
  "data": [{
    "datetime": "2024-04-26T17:00:00+03:00",
    "channels": [
      {"id": 1, "name": "NOX", "value": 30, "status": 1, "valid": true, "units": "ppb"},
      {"id": 2, "name": "NO2", "value": 20, "status": 1, "valid": true, "units": "ppb"},
      {"id": 3, "name": "O3", "value": 40, "status": 1, "valid": true, "units": "ppb"},
      {"id": 4, "name": "WDS", "value": 1.2, "status": 1, "valid": true, "units": "m/s"},
      {"id": 5, "name": "SO2", "value": 5, "status": 1, "valid": true, "units": "ppb"},
      {"id": 6, "name": "PM2.5", "value": 25, "status": 1, "valid": true, "units": "ug/m3"},
      {"id": 7, "name": "Rain", "value": 0, "status": 1, "valid": true, "units": "mm"},
      {"id": 8, "name": "Temp", "value": 24.5, "status": 1, "valid": true, "units": "degC"},
      {"id": 9, "name": "RH", "value": 61, "status": 1, "valid": true, "units": "%"}
    ]
  }]
}`

func testClient(baseURL string) *Client {
	return NewClient(&config.Config{
		StationAPIURL:     baseURL,
		StationID:         375,
		StationAPIToken:   testToken,
		StationDataSource: "MANA",
		StationTimeout:    5 * time.Second,
	}, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchLatest_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stations/375/data/latest", r.URL.Path)
		assert.Equal(t, "ApiToken "+testToken, r.Header.Get("Authorization"))
		assert.Equal(t, "MANA", r.Header.Get("envi-data-source"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, latestPayload)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	snap, err := c.FetchLatest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 375, snap.StationID)
	assert.True(t, snap.MeasuredAt.Equal(time.Date(2024, 4, 26, 14, 0, 0, 0, time.UTC)))
	assert.Equal(t, []domain.Reading{
		{Pollutant: domain.NOX, Value: 30},
		{Pollutant: domain.NO2, Value: 20},
		{Pollutant: domain.O3, Value: 40},
		{Pollutant: domain.SO2, Value: 5},
		{Pollutant: domain.PM25, Value: 25},
	}, snap.Readings)
	require.NotNil(t, snap.Weather.Temperature)
	assert.Equal(t, 24.5, *snap.Weather.Temperature)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.StationRequests.WithLabelValues("success")))
}

func TestClient_FetchLatest_TrailingSlashBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stations/375/data/latest", r.URL.Path)
		_, _ = io.WriteString(w, latestPayload)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL + "/").FetchLatest(context.Background())
	require.NoError(t, err)
}

func TestClient_FetchLatest_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"invalid token"}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.FetchLatest(context.Background())
	require.Error(t, err)

	var unavailable *domain.DataUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 375, unavailable.StationID)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, domain.KindDataUnavailable, domain.ErrorKind(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.StationRequests.WithLabelValues("error")))
}

func TestClient_FetchLatest_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{"data": [`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchLatest(context.Background())
	var unavailable *domain.DataUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_FetchLatest_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, latestPayload)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).FetchLatest(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for range 6 {
		_, err := c.FetchLatest(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, int32(6), calls.Load())

	// The seventh call is rejected without reaching the server.
	_, err := c.FetchLatest(context.Background())
	var unavailable *domain.DataUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, int32(6), calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.StationRequests.WithLabelValues("breaker_open")))
}

func TestBreakerSettings_CountsSpanPollIntervals(t *testing.T) {
	s := breakerSettings("station-375")

	// A non-zero Interval would clear counts between polls minutes apart.
	assert.Zero(t, s.Interval)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.False(t, s.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: maxConsecutiveFailures}))
	assert.True(t, s.ReadyToTrip(gobreaker.Counts{ConsecutiveFailures: maxConsecutiveFailures + 1}))
}

func TestClient_BreakerCountResetsOnlyOnSuccess(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, latestPayload)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for range 3 {
		_, err := c.FetchLatest(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, uint32(3), c.breaker.Counts().ConsecutiveFailures)

	failing.Store(false)
	_, err := c.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Zero(t, c.breaker.Counts().ConsecutiveFailures)
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())
}

func TestClient_LatestURL(t *testing.T) {
	c := testClient("https://api.svivaaqm.net/v1/envista")
	assert.Equal(t, "https://api.svivaaqm.net/v1/envista/stations/375/data/latest", c.LatestURL())
	assert.Equal(t, 375, c.StationID())
}
