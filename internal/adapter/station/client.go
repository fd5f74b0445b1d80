package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/sony/gobreaker/v2"
)

// Client fetches the latest data block of one Envista monitoring station.
// It implements pipeline.Extractor.
type Client struct {
	baseURL    string
	stationID  int
	token      string
	dataSource string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a station client from the STATION_* settings.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.StationAPIURL, "/"),
		stationID:  cfg.StationID,
		token:      cfg.StationAPIToken,
		dataSource: cfg.StationDataSource,
		httpClient: &http.Client{
			Timeout: cfg.StationTimeout,
		},
		breaker: newBreaker(fmt.Sprintf("station-%d", cfg.StationID)),
		metrics: metrics,
		logger:  logger,
	}
}

// maxConsecutiveFailures is the number of failed polls tolerated before the
// breaker opens.
const maxConsecutiveFailures = 5

// breakerSettings opens after more than maxConsecutiveFailures failures in a
// row and lets one request through every 30 seconds while open. Interval is
// zero so counts survive any poll spacing and only reset on success or a
// state change.
func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > maxConsecutiveFailures
		},
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](breakerSettings(name))
}

// StationID returns the station this client reads from.
func (c *Client) StationID() int {
	return c.stationID
}

// LatestURL is the endpoint polled for the newest data block.
func (c *Client) LatestURL() string {
	return fmt.Sprintf("%s/stations/%d/data/latest", c.baseURL, c.stationID)
}

// FetchLatest retrieves and parses the station's latest data block. Every
// failure is returned as a *domain.DataUnavailableError; nothing is retried.
func (c *Client) FetchLatest(ctx context.Context) (domain.StationSnapshot, error) {
	body, err := c.get(ctx)
	if err != nil {
		return domain.StationSnapshot{}, c.unavailable(err)
	}

	snap, err := ParseLatest(body)
	if err != nil {
		return domain.StationSnapshot{}, c.unavailable(err)
	}
	snap.StationID = c.stationID

	c.logger.Debug("station data fetched",
		"measured_at", snap.MeasuredAt,
		"readings", len(snap.Readings),
	)
	return snap, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.LatestURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "ApiToken "+c.token)
	req.Header.Set("envi-data-source", c.dataSource)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(r.Body, 512))
			r.Body.Close()
			return nil, fmt.Errorf("station API error: status %d: %s", r.StatusCode, strings.TrimSpace(string(snippet)))
		}
		return r, nil
	})
	c.metrics.StationRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
		}
		c.metrics.StationRequests.WithLabelValues(outcome).Inc()
		return nil, err
	}
	defer resp.Body.Close()
	c.metrics.StationRequests.WithLabelValues("success").Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func (c *Client) unavailable(err error) error {
	c.logger.Warn("station data unavailable", "url", c.LatestURL(), "error", err)
	return &domain.DataUnavailableError{StationID: c.stationID, Err: err}
}
