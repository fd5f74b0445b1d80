package station

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// Envista API response types.

type latestResponse struct {
	Data []dataBlock `json:"data"`
}

type dataBlock struct {
	DateTime string    `json:"datetime"`
	Channels []channel `json:"channels"`
}

type channel struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Alias  string   `json:"alias"`
	Value  *float64 `json:"value"`
	Status int      `json:"status"`
	Valid  bool     `json:"valid"`
	Units  string   `json:"units"`
}

// ErrNoData is returned when the payload holds no data block.
var ErrNoData = errors.New("response contains no data block")

// ParseLatest decodes an Envista "latest data" payload into a snapshot. Only
// the first data block is read. Pollutant and weather channels are matched
// by name; unrecognized channels and channels without a value are skipped.
// The returned snapshot has no StationID; callers fill it in.
func ParseLatest(body []byte) (domain.StationSnapshot, error) {
	var resp latestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.StationSnapshot{}, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Data) == 0 {
		return domain.StationSnapshot{}, ErrNoData
	}

	block := resp.Data[0]
	measuredAt, err := time.Parse(time.RFC3339, block.DateTime)
	if err != nil {
		return domain.StationSnapshot{}, fmt.Errorf("parse datetime %q: %w", block.DateTime, err)
	}

	snap := domain.StationSnapshot{MeasuredAt: measuredAt}
	seen := make(map[domain.Pollutant]bool)
	for _, ch := range block.Channels {
		if ch.Value == nil {
			continue
		}
		name := ch.Name
		if name == "" {
			name = ch.Alias
		}

		if p, err := domain.ParsePollutant(name); err == nil {
			// Some stations report the same pollutant on two channels; keep the first.
			if seen[p] {
				continue
			}
			seen[p] = true
			snap.Readings = append(snap.Readings, domain.Reading{Pollutant: p, Value: *ch.Value})
			continue
		}

		v := *ch.Value
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "RAIN":
			snap.Weather.Rain = &v
		case "TEMP", "TEMPERATURE":
			snap.Weather.Temperature = &v
		case "RH", "HUMIDITY":
			snap.Weather.Humidity = &v
		}
	}
	return snap, nil
}
